package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/internal/coupons"
	"github.com/souqline/souqline-backend/internal/inventory"
	"github.com/souqline/souqline-backend/internal/taxes"
	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	apperrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/metrics"
	"github.com/souqline/souqline-backend/pkg/outbox"
	"github.com/souqline/souqline-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// couponQuoter is the slice of the coupon service checkout needs.
type couponQuoter interface {
	Validate(ctx context.Context, buyerID, branchID uuid.UUID, code string, subtotal decimal.Decimal) (*coupons.Quote, error)
	Redeem(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) error
}

// stockLedger is the slice of the inventory service checkout needs.
type stockLedger interface {
	Debit(ctx context.Context, act actor.Actor, branchID uuid.UUID, reason string, requests []inventory.DebitRequest) ([]inventory.AppliedDebit, error)
	Credit(ctx context.Context, act actor.Actor, branchID uuid.UUID, reason string, applied []inventory.AppliedDebit) error
}

// catalog reads product snapshots at checkout time.
type catalog interface {
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error)
}

type branchReader interface {
	FindByID(ctx context.Context, branchID uuid.UUID) (*models.Branch, error)
}

type userReader interface {
	FindByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// rateSource resolves category tax rates for checkout and accrual.
type rateSource interface {
	CategoryRates(ctx context.Context, names []string) (taxes.CategoryRates, error)
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind, title, message string) error
}

type paymentMethods interface {
	SupportsPaymentMethod(country, method string) bool
}

// CreateItem is one requested order line.
type CreateItem struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
}

// CreateInput is the checkout request payload.
type CreateInput struct {
	BranchID      uuid.UUID           `json:"branchId" validate:"required"`
	Items         []CreateItem        `json:"items" validate:"required,min=1,dive"`
	CouponCode    *string             `json:"couponCode"`
	PaymentMethod string              `json:"paymentMethod" validate:"required"`
	ShippingInfo  models.ShippingInfo `json:"shippingInfo" validate:"required"`
}

// Service is the order state machine: checkout, the single legal pair of
// status transitions, buyer listings and history removal.
type Service interface {
	// Create places an order. When inventory can only be partially applied
	// the order is still returned alongside a partial-application error;
	// the order stays pending with the applied subset recorded in the log.
	Create(ctx context.Context, act actor.Actor, in CreateInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, act actor.Actor, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error)
	GetByID(ctx context.Context, act actor.Actor, orderID uuid.UUID) (*models.Order, error)
	ListForBuyer(ctx context.Context, act actor.Actor, params pagination.Params) ([]models.Order, string, error)
	ListForBranch(ctx context.Context, act actor.Actor, branchID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	// HideFromHistory removes a terminal order from the buyer's listing
	// without touching inventory logs, status history or tax accrual.
	HideFromHistory(ctx context.Context, act actor.Actor, orderID uuid.UUID) error
}

// Deps wires the collaborating services into the order state machine.
type Deps struct {
	Repo      Repository
	Tx        txRunner
	Coupons   couponQuoter
	Inventory stockLedger
	Catalog   catalog
	Branches  branchReader
	Users     userReader
	Rates     rateSource
	Notifier  notifier
	Countries paymentMethods
	Outbox    outbox.Emitter
	Logger    *logger.Logger
	Metrics   *metrics.CoreMetrics

	// FlatShippingFee is charged on every order until per-branch shipping
	// profiles exist.
	FlatShippingFee decimal.Decimal
}

type service struct {
	deps Deps
	now  func() time.Time
}

// NewService builds the order service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, errors.New("orders: repository is required")
	case deps.Tx == nil:
		return nil, errors.New("orders: transaction runner is required")
	case deps.Coupons == nil:
		return nil, errors.New("orders: coupon service is required")
	case deps.Inventory == nil:
		return nil, errors.New("orders: inventory service is required")
	case deps.Catalog == nil:
		return nil, errors.New("orders: catalog is required")
	case deps.Branches == nil:
		return nil, errors.New("orders: branch reader is required")
	case deps.Users == nil:
		return nil, errors.New("orders: user reader is required")
	case deps.Rates == nil:
		return nil, errors.New("orders: rate source is required")
	case deps.Notifier == nil:
		return nil, errors.New("orders: notifier is required")
	case deps.Countries == nil:
		return nil, errors.New("orders: country registry is required")
	case deps.Outbox == nil:
		return nil, errors.New("orders: outbox emitter is required")
	case deps.Logger == nil:
		return nil, errors.New("orders: logger is required")
	}
	return &service{deps: deps, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, act actor.Actor, in CreateInput) (*models.Order, error) {
	if act.IsZero() {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "checkout requires an authenticated buyer")
	}
	if len(in.Items) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "order must contain at least one item")
	}

	buyer, err := s.deps.Users.FindByID(ctx, act.UserID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load buyer")
	}
	if buyer.IsSuspended(s.now()) {
		return nil, apperrors.New(apperrors.CodeForbidden, "account is suspended")
	}

	branch, err := s.deps.Branches.FindByID(ctx, in.BranchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "branch not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load branch")
	}
	if branch.Status != enums.BranchStatusActive {
		return nil, apperrors.New(apperrors.CodeConflict, "branch is not accepting orders")
	}
	if !s.deps.Countries.SupportsPaymentMethod(in.ShippingInfo.Country, in.PaymentMethod) {
		return nil, apperrors.New(apperrors.CodeValidation, "payment method is not available in this country")
	}

	lineItems, debits, subtotal, err := s.snapshotItems(ctx, in)
	if err != nil {
		return nil, err
	}

	var (
		discount   decimal.Decimal
		couponID   *uuid.UUID
		couponCode *string
	)
	if in.CouponCode != nil && *in.CouponCode != "" {
		quote, err := s.deps.Coupons.Validate(ctx, act.UserID, in.BranchID, *in.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
		discount = quote.DiscountAmount
		couponID = &quote.Coupon.ID
		couponCode = &quote.Coupon.Code
	}

	shipping := s.deps.FlatShippingFee
	order := &models.Order{
		ID:             uuid.New(),
		BuyerID:        act.UserID,
		BranchID:       in.BranchID,
		Status:         enums.OrderStatusPending,
		TotalAmount:    subtotal,
		ShippingCost:   shipping,
		DiscountAmount: discount,
		CouponCode:     couponCode,
		PaymentMethod:  &in.PaymentMethod,
		ShippingInfo:   &in.ShippingInfo,
		Items:          lineItems,
	}

	taxAmount, taxRate, err := s.checkoutTax(ctx, branch, order)
	if err != nil {
		return nil, err
	}
	order.TaxAmount = taxAmount
	order.TaxRate = taxRate
	order.FinalAmount = subtotal.Sub(discount).Add(shipping).Add(taxAmount)

	err = s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.deps.Repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to persist order")
		}
		event := &models.OrderStatusEvent{
			OrderID:   order.ID,
			Status:    enums.OrderStatusPending,
			ActorID:   act.UserID,
			ActorRole: act.Role,
		}
		if err := repo.AppendStatusEvent(ctx, event); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to record initial status")
		}
		if couponID != nil {
			if err := s.deps.Coupons.Redeem(ctx, tx, *couponID); err != nil {
				return err
			}
			s.deps.Metrics.IncCouponRedemptions()
		}
		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(act),
			Version:       1,
			Data: map[string]any{
				"orderId":     order.ID.String(),
				"branchId":    order.BranchID.String(),
				"finalAmount": order.FinalAmount.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.IncOrdersCreated(order.BranchID.String())

	// Stock moves outside the order transaction so a partial debit leaves
	// a committed pending order plus an accurate ledger of what applied.
	_, debitErr := s.deps.Inventory.Debit(ctx, act, in.BranchID, inventory.ReasonOrderPlaced, debits)

	s.notify(ctx, branch.OwnerID, enums.NotificationKindOrder,
		"New order received",
		fmt.Sprintf("Order %s was placed for %s.", order.ID, order.FinalAmount.StringFixed(2)))

	if debitErr != nil {
		return order, debitErr
	}
	return order, nil
}

func (s *service) snapshotItems(ctx context.Context, in CreateInput) ([]models.OrderLineItem, []inventory.DebitRequest, decimal.Decimal, error) {
	lineItems := make([]models.OrderLineItem, 0, len(in.Items))
	debits := make([]inventory.DebitRequest, 0, len(in.Items))
	subtotal := decimal.Zero

	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, nil, decimal.Zero, apperrors.New(apperrors.CodeValidation, "item quantity must be positive")
		}
		product, err := s.deps.Catalog.FindProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, decimal.Zero, apperrors.New(apperrors.CodeNotFound, "product not found")
			}
			return nil, nil, decimal.Zero, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load product")
		}
		if product.BranchID != in.BranchID {
			return nil, nil, decimal.Zero, apperrors.New(apperrors.CodeValidation, "product does not belong to this branch")
		}
		if !product.IsActive {
			return nil, nil, decimal.Zero, apperrors.New(apperrors.CodeConflict, "product is no longer available")
		}

		unitPrice := product.Price
		if item.VariantID != nil {
			variant, err := s.deps.Catalog.FindVariant(ctx, *item.VariantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, nil, decimal.Zero, apperrors.New(apperrors.CodeNotFound, "product variant not found")
				}
				return nil, nil, decimal.Zero, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load variant")
			}
			if variant.ProductID != product.ID {
				return nil, nil, decimal.Zero, apperrors.New(apperrors.CodeValidation, "variant does not belong to this product")
			}
			unitPrice = variant.Price
		}

		lineItems = append(lineItems, models.OrderLineItem{
			ProductID: product.ID,
			VariantID: item.VariantID,
			Name:      product.Name,
			Category:  product.Category,
			UnitPrice: unitPrice,
			Quantity:  item.Quantity,
		})
		debits = append(debits, inventory.DebitRequest{
			ProductID: product.ID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
		subtotal = subtotal.Add(unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return lineItems, debits, subtotal, nil
}

// checkoutTax persists the branch-override computation when the branch owner
// carries a rate, otherwise falls back to per-category rates. The stored
// amount becomes tier one of every later accrual pass.
func (s *service) checkoutTax(ctx context.Context, branch *models.Branch, order *models.Order) (decimal.Decimal, decimal.Decimal, error) {
	owner, err := s.deps.Users.FindByID(ctx, branch.OwnerID)
	if err != nil {
		return decimal.Zero, decimal.Zero, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load branch owner")
	}

	if owner.TaxRate != nil && !owner.TaxRate.IsZero() {
		return taxes.Accrual(order, owner.TaxRate, nil), *owner.TaxRate, nil
	}

	names := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		names = append(names, item.Category)
	}
	rates, err := s.deps.Rates.CategoryRates(ctx, names)
	if err != nil {
		return decimal.Zero, decimal.Zero, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load category tax rates")
	}
	return taxes.Accrual(order, nil, rates), decimal.Zero, nil
}

func (s *service) UpdateStatus(ctx context.Context, act actor.Actor, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	if !next.IsValid() || next == enums.OrderStatusPending {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid target status")
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !act.CanManageBranch(order.BranchID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to transition this order")
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, apperrors.New(apperrors.CodeStateConflict, "order is already in a terminal status").
			WithDetails(map[string]any{"status": order.Status.String()})
	}

	err = s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.deps.Repo.WithTx(tx)
		ok, err := repo.UpdateStatus(ctx, orderID, enums.OrderStatusPending, next)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to update order status")
		}
		if !ok {
			// Another transition landed first.
			return apperrors.New(apperrors.CodeStateConflict, "order is already in a terminal status")
		}
		event := &models.OrderStatusEvent{
			OrderID:   orderID,
			Status:    next,
			ActorID:   act.UserID,
			ActorRole: act.Role,
		}
		if err := repo.AppendStatusEvent(ctx, event); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to record status change")
		}
		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         actorRef(act),
			Version:       1,
			Data: map[string]any{
				"orderId": orderID.String(),
				"status":  next.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if next == enums.OrderStatusCancelled {
		s.creditBack(ctx, act, order)
	}

	s.notify(ctx, order.BuyerID, enums.NotificationKindOrder,
		"Order "+next.String(),
		fmt.Sprintf("Your order %s is now %s.", order.ID, next))

	order.Status = next
	return order, nil
}

// creditBack restores stock for every line of a cancelled order. Failures
// are logged, not surfaced: the cancellation itself already committed.
func (s *service) creditBack(ctx context.Context, act actor.Actor, order *models.Order) {
	applied := make([]inventory.AppliedDebit, 0, len(order.Items))
	for _, item := range order.Items {
		applied = append(applied, inventory.AppliedDebit{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	if err := s.deps.Inventory.Credit(ctx, act, order.BranchID, inventory.ReasonOrderCancelled, applied); err != nil {
		s.deps.Logger.Error(ctx, "failed to credit stock after cancellation", err)
	}
}

func (s *service) GetByID(ctx context.Context, act actor.Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != act.UserID && !act.CanManageBranch(order.BranchID) {
		return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForBuyer(ctx context.Context, act actor.Actor, params pagination.Params) ([]models.Order, string, error) {
	orders, next, err := s.deps.Repo.ListByBuyer(ctx, act.UserID, params)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeInternal, err, "failed to list orders")
	}
	return orders, next, nil
}

func (s *service) ListForBranch(ctx context.Context, act actor.Actor, branchID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	if !act.CanManageBranch(branchID) {
		return nil, "", apperrors.New(apperrors.CodeForbidden, "not allowed to view this branch's orders")
	}
	orders, next, err := s.deps.Repo.ListByBranch(ctx, branchID, params)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeInternal, err, "failed to list branch orders")
	}
	return orders, next, nil
}

func (s *service) HideFromHistory(ctx context.Context, act actor.Actor, orderID uuid.UUID) error {
	ok, err := s.deps.Repo.Hide(ctx, orderID, act.UserID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to hide order")
	}
	if !ok {
		return apperrors.New(apperrors.CodeConflict, "only your own completed or cancelled orders can be removed")
	}
	return nil
}

func (s *service) getOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.deps.Repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load order")
	}
	return order, nil
}

func (s *service) notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind, title, message string) {
	if err := s.deps.Notifier.Notify(ctx, userID, kind, title, message); err != nil {
		s.deps.Logger.Error(ctx, "failed to create notification", err)
	}
}

func actorRef(act actor.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: act.UserID, BranchID: act.BranchID, Role: act.Role}
}

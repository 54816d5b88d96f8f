package finance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/internal/taxes"
	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	apperrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// accrualOrders reads the orders that still count toward a branch's accrual.
type accrualOrders interface {
	ListNonCancelledByBranch(ctx context.Context, branchID uuid.UUID) ([]models.Order, error)
}

type branchReader interface {
	FindByID(ctx context.Context, branchID uuid.UUID) (*models.Branch, error)
}

type userReader interface {
	FindByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type rateSource interface {
	CategoryRates(ctx context.Context, names []string) (taxes.CategoryRates, error)
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind, title, message string) error
}

// SubmitInput is a branch's self-reported settlement payment.
type SubmitInput struct {
	Amount         decimal.Decimal          `json:"amount" validate:"required"`
	TransactionRef string                   `json:"transactionRef" validate:"required,min=4,max=120"`
	Type           enums.FinancePaymentType `json:"type" validate:"required"`
	Period         *string                  `json:"period"`
	ProofURL       *string                  `json:"proofUrl" validate:"omitempty,url"`
}

// Summary is the derived settlement position of a branch. Every figure is
// recomputed from orders and approved payments; nothing here is cached.
type Summary struct {
	BranchID uuid.UUID `json:"branchId"`

	AccruedTax     decimal.Decimal `json:"accruedTax"`
	PaidTax        decimal.Decimal `json:"paidTax"`
	OutstandingTax decimal.Decimal `json:"outstandingTax"`

	SubscriptionDue         decimal.Decimal `json:"subscriptionDue"`
	PaidSubscription        decimal.Decimal `json:"paidSubscription"`
	OutstandingSubscription decimal.Decimal `json:"outstandingSubscription"`
}

// Service is the settlement reconciler: branches report payments, platform
// actors decide them, and the outstanding position is always derived.
type Service interface {
	SubmitPayment(ctx context.Context, act actor.Actor, branchID uuid.UUID, in SubmitInput) (*models.FinancePayment, error)
	// Decide approves or rejects a pending payment. Decisions are one-way;
	// a second decision on the same payment returns STATE_CONFLICT.
	Decide(ctx context.Context, act actor.Actor, paymentID uuid.UUID, approve bool, message *string) (*models.FinancePayment, error)
	GetSummary(ctx context.Context, act actor.Actor, branchID uuid.UUID) (*Summary, error)
	ListForBranch(ctx context.Context, act actor.Actor, branchID uuid.UUID) ([]models.FinancePayment, error)
	ListPending(ctx context.Context, act actor.Actor) ([]models.FinancePayment, error)
}

// Deps wires the finance service collaborators.
type Deps struct {
	Repo     Repository
	Tx       txRunner
	Orders   accrualOrders
	Branches branchReader
	Users    userReader
	Rates    rateSource
	Notifier notifier
	Outbox   outbox.Emitter
	Logger   *logger.Logger
}

type service struct {
	deps Deps
	now  func() time.Time
}

// NewService builds the finance service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, errors.New("finance: repository is required")
	case deps.Tx == nil:
		return nil, errors.New("finance: transaction runner is required")
	case deps.Orders == nil:
		return nil, errors.New("finance: order reader is required")
	case deps.Branches == nil:
		return nil, errors.New("finance: branch reader is required")
	case deps.Users == nil:
		return nil, errors.New("finance: user reader is required")
	case deps.Rates == nil:
		return nil, errors.New("finance: rate source is required")
	case deps.Notifier == nil:
		return nil, errors.New("finance: notifier is required")
	case deps.Outbox == nil:
		return nil, errors.New("finance: outbox emitter is required")
	case deps.Logger == nil:
		return nil, errors.New("finance: logger is required")
	}
	return &service{deps: deps, now: time.Now}, nil
}

func (s *service) SubmitPayment(ctx context.Context, act actor.Actor, branchID uuid.UUID, in SubmitInput) (*models.FinancePayment, error) {
	if !act.CanManageBranch(branchID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to report payments for this branch")
	}
	if !in.Type.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown payment type")
	}
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.New(apperrors.CodeValidation, "payment amount must be positive")
	}
	if strings.TrimSpace(in.TransactionRef) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "transaction reference is required")
	}

	payment := &models.FinancePayment{
		ID:             uuid.New(),
		BranchID:       branchID,
		Amount:         in.Amount,
		TransactionRef: strings.TrimSpace(in.TransactionRef),
		Type:           in.Type,
		Status:         enums.FinancePaymentStatusPending,
		Period:         in.Period,
		ProofURL:       in.ProofURL,
	}
	if err := s.deps.Repo.Create(ctx, payment); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to record payment")
	}
	return payment, nil
}

func (s *service) Decide(ctx context.Context, act actor.Actor, paymentID uuid.UUID, approve bool, message *string) (*models.FinancePayment, error) {
	if !act.IsPlatformAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "only platform actors decide payments")
	}

	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	status := enums.FinancePaymentStatusRejected
	if approve {
		status = enums.FinancePaymentStatusApproved
	}

	err = s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.deps.Repo.WithTx(tx).Decide(ctx, paymentID, act.UserID, status, message, s.now())
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to decide payment")
		}
		if !ok {
			return apperrors.New(apperrors.CodeStateConflict, "payment has already been decided")
		}
		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventFinancePaymentDecided,
			AggregateType: enums.AggregateFinancePayment,
			AggregateID:   paymentID,
			Actor:         &outbox.ActorRef{UserID: act.UserID, Role: act.Role},
			Version:       1,
			Data: map[string]any{
				"paymentId": paymentID.String(),
				"status":    string(status),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if branch, err := s.deps.Branches.FindByID(ctx, payment.BranchID); err == nil {
		if err := s.deps.Notifier.Notify(ctx, branch.OwnerID, enums.NotificationKindFinance,
			"Payment "+string(status),
			"Your "+string(payment.Type)+" payment of "+payment.Amount.StringFixed(2)+" was "+string(status)+"."); err != nil {
			s.deps.Logger.Error(ctx, "failed to notify payment decision", err)
		}
	}

	return s.getPayment(ctx, paymentID)
}

func (s *service) GetSummary(ctx context.Context, act actor.Actor, branchID uuid.UUID) (*Summary, error) {
	if !act.CanManageBranch(branchID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to view this branch's settlement position")
	}

	branch, err := s.deps.Branches.FindByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "branch not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load branch")
	}
	owner, err := s.deps.Users.FindByID(ctx, branch.OwnerID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load branch owner")
	}

	accrued, err := s.accruedTax(ctx, branchID, owner.TaxRate)
	if err != nil {
		return nil, err
	}
	paidTax, err := s.deps.Repo.SumApproved(ctx, branchID, enums.FinancePaymentTypeTax)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to sum approved tax payments")
	}
	paidSub, err := s.deps.Repo.SumApproved(ctx, branchID, enums.FinancePaymentTypeSubscription)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to sum approved subscription payments")
	}

	due := subscriptionDue(owner.MonthlySubscriptionFee, branch.CreatedAt, s.now())

	return &Summary{
		BranchID:                branchID,
		AccruedTax:              accrued,
		PaidTax:                 paidTax,
		OutstandingTax:          floorZero(accrued.Sub(paidTax)),
		SubscriptionDue:         due,
		PaidSubscription:        paidSub,
		OutstandingSubscription: floorZero(due.Sub(paidSub)),
	}, nil
}

// accruedTax folds the tax calculator over every order that still counts.
// Re-running it over unchanged orders must reproduce the same figure.
func (s *service) accruedTax(ctx context.Context, branchID uuid.UUID, branchRate *decimal.Decimal) (decimal.Decimal, error) {
	orders, err := s.deps.Orders.ListNonCancelledByBranch(ctx, branchID)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load branch orders")
	}

	var rates taxes.CategoryRates
	if branchRate == nil || branchRate.IsZero() {
		seen := map[string]struct{}{}
		var names []string
		for _, order := range orders {
			for _, item := range order.Items {
				if _, ok := seen[item.Category]; !ok {
					seen[item.Category] = struct{}{}
					names = append(names, item.Category)
				}
			}
		}
		rates, err = s.deps.Rates.CategoryRates(ctx, names)
		if err != nil {
			return decimal.Zero, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load category tax rates")
		}
	}

	total := decimal.Zero
	for i := range orders {
		total = total.Add(taxes.Accrual(&orders[i], branchRate, rates))
	}
	return total, nil
}

func (s *service) ListForBranch(ctx context.Context, act actor.Actor, branchID uuid.UUID) ([]models.FinancePayment, error) {
	if !act.CanManageBranch(branchID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to view this branch's payments")
	}
	payments, err := s.deps.Repo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list payments")
	}
	return payments, nil
}

func (s *service) ListPending(ctx context.Context, act actor.Actor) ([]models.FinancePayment, error) {
	if !act.IsPlatformAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "only platform actors review pending payments")
	}
	payments, err := s.deps.Repo.ListPending(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list pending payments")
	}
	return payments, nil
}

func (s *service) getPayment(ctx context.Context, paymentID uuid.UUID) (*models.FinancePayment, error) {
	payment, err := s.deps.Repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "payment not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load payment")
	}
	return payment, nil
}

// subscriptionDue charges the monthly fee once per calendar month the branch
// has existed, the founding month included.
func subscriptionDue(monthlyFee *decimal.Decimal, since, now time.Time) decimal.Decimal {
	if monthlyFee == nil || monthlyFee.IsZero() || now.Before(since) {
		return decimal.Zero
	}
	months := (now.Year()-since.Year())*12 + int(now.Month()) - int(since.Month()) + 1
	return monthlyFee.Mul(decimal.NewFromInt(int64(months)))
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

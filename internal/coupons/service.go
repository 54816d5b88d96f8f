package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/db"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	apperrors "github.com/souqline/souqline-backend/pkg/errors"
)

// orderLookup answers whether a buyer has already placed a non-cancelled
// order with a given coupon. Satisfied by the orders repository.
type orderLookup interface {
	HasCouponOrder(ctx context.Context, buyerID, branchID uuid.UUID, code string) (bool, error)
}

// Quote is the outcome of validating a coupon against a cart subtotal.
type Quote struct {
	Coupon         *models.Coupon
	DiscountAmount decimal.Decimal
}

// CreateInput carries the fields a branch admin supplies for a new coupon.
type CreateInput struct {
	Code           string             `json:"code" validate:"required,min=3,max=32"`
	DiscountType   enums.DiscountType `json:"discountType" validate:"required"`
	Value          decimal.Decimal    `json:"value" validate:"required"`
	MinOrderAmount decimal.Decimal    `json:"minOrderAmount"`
	UsageLimit     int                `json:"usageLimit" validate:"min=0"`
	ExpiryDate     time.Time          `json:"expiryDate" validate:"required"`
}

// UpdateInput carries the mutable fields of an existing coupon.
type UpdateInput struct {
	Value          *decimal.Decimal `json:"value"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount"`
	UsageLimit     *int             `json:"usageLimit" validate:"omitempty,min=0"`
	ExpiryDate     *time.Time       `json:"expiryDate"`
	IsActive       *bool            `json:"isActive"`
}

// Service exposes coupon validation for checkout and coupon management
// for branch admins.
type Service interface {
	// Validate runs the redemption checks for a buyer's cart and returns
	// the discount the coupon would grant. It never mutates state.
	Validate(ctx context.Context, buyerID, branchID uuid.UUID, code string, subtotal decimal.Decimal) (*Quote, error)
	// Redeem consumes one usage of the coupon. It must run inside the
	// same transaction that persists the order.
	Redeem(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) error

	Create(ctx context.Context, act actor.Actor, branchID uuid.UUID, in CreateInput) (*models.Coupon, error)
	Update(ctx context.Context, act actor.Actor, branchID, couponID uuid.UUID, in UpdateInput) (*models.Coupon, error)
	Delete(ctx context.Context, act actor.Actor, branchID, couponID uuid.UUID) error
	ListByBranch(ctx context.Context, act actor.Actor, branchID uuid.UUID) ([]models.Coupon, error)
}

type service struct {
	repo   Repository
	orders orderLookup
	now    func() time.Time
}

// NewService builds the coupon service.
func NewService(repo Repository, orders orderLookup) (Service, error) {
	if repo == nil {
		return nil, errors.New("coupons: repository is required")
	}
	if orders == nil {
		return nil, errors.New("coupons: order lookup is required")
	}
	return &service{repo: repo, orders: orders, now: time.Now}, nil
}

func (s *service) Validate(ctx context.Context, buyerID, branchID uuid.UUID, code string, subtotal decimal.Decimal) (*Quote, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindActiveByCode(ctx, branchID, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeValidation, "coupon code is not valid for this branch")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to look up coupon")
	}

	if s.now().After(coupon.ExpiryDate) {
		return nil, apperrors.New(apperrors.CodeValidation, "coupon has expired")
	}
	if subtotal.LessThan(coupon.MinOrderAmount) {
		return nil, apperrors.New(apperrors.CodeValidation, "order subtotal is below the coupon minimum").
			WithDetails(map[string]any{"minOrderAmount": coupon.MinOrderAmount.String()})
	}
	if coupon.UsageLimit > 0 && coupon.UsageCount >= coupon.UsageLimit {
		return nil, apperrors.New(apperrors.CodeConflict, "coupon usage limit reached")
	}

	used, err := s.orders.HasCouponOrder(ctx, buyerID, branchID, coupon.Code)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to check coupon usage")
	}
	if used {
		return nil, apperrors.New(apperrors.CodeConflict, "coupon already used by this buyer")
	}

	return &Quote{Coupon: coupon, DiscountAmount: Discount(coupon, subtotal)}, nil
}

func (s *service) Redeem(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) error {
	ok, err := s.repo.WithTx(tx).IncrementUsage(ctx, couponID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to redeem coupon")
	}
	if !ok {
		// Lost the race to the last remaining usage.
		return apperrors.New(apperrors.CodeConflict, "coupon usage limit reached")
	}
	return nil
}

func (s *service) Create(ctx context.Context, act actor.Actor, branchID uuid.UUID, in CreateInput) (*models.Coupon, error) {
	if !act.CanManageBranch(branchID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to manage coupons for this branch")
	}
	if !in.DiscountType.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown discount type")
	}
	if in.Value.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.New(apperrors.CodeValidation, "discount value must be positive")
	}
	if in.DiscountType == enums.DiscountTypePercentage && in.Value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, apperrors.New(apperrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if in.MinOrderAmount.IsNegative() {
		return nil, apperrors.New(apperrors.CodeValidation, "minimum order amount cannot be negative")
	}
	if !in.ExpiryDate.After(s.now()) {
		return nil, apperrors.New(apperrors.CodeValidation, "expiry date must be in the future")
	}

	coupon := &models.Coupon{
		BranchID:       branchID,
		Code:           normalizeCode(in.Code),
		DiscountType:   in.DiscountType,
		Value:          in.Value,
		MinOrderAmount: in.MinOrderAmount,
		UsageLimit:     in.UsageLimit,
		IsActive:       true,
		ExpiryDate:     in.ExpiryDate,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "ux_coupons_branch_code") {
			return nil, apperrors.New(apperrors.CodeConflict, "coupon code already exists for this branch")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to create coupon")
	}
	return coupon, nil
}

func (s *service) Update(ctx context.Context, act actor.Actor, branchID, couponID uuid.UUID, in UpdateInput) (*models.Coupon, error) {
	if !act.CanManageBranch(branchID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to manage coupons for this branch")
	}
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "coupon not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load coupon")
	}
	if coupon.BranchID != branchID {
		return nil, apperrors.New(apperrors.CodeNotFound, "coupon not found")
	}

	if in.Value != nil {
		if in.Value.LessThanOrEqual(decimal.Zero) {
			return nil, apperrors.New(apperrors.CodeValidation, "discount value must be positive")
		}
		coupon.Value = *in.Value
	}
	if in.MinOrderAmount != nil {
		if in.MinOrderAmount.IsNegative() {
			return nil, apperrors.New(apperrors.CodeValidation, "minimum order amount cannot be negative")
		}
		coupon.MinOrderAmount = *in.MinOrderAmount
	}
	if in.UsageLimit != nil {
		coupon.UsageLimit = *in.UsageLimit
	}
	if in.ExpiryDate != nil {
		coupon.ExpiryDate = *in.ExpiryDate
	}
	if in.IsActive != nil {
		coupon.IsActive = *in.IsActive
	}

	if err := s.repo.Update(ctx, coupon); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to update coupon")
	}
	return coupon, nil
}

func (s *service) Delete(ctx context.Context, act actor.Actor, branchID, couponID uuid.UUID) error {
	if !act.CanManageBranch(branchID) {
		return apperrors.New(apperrors.CodeForbidden, "not allowed to manage coupons for this branch")
	}
	ok, err := s.repo.Delete(ctx, branchID, couponID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to delete coupon")
	}
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "coupon not found")
	}
	return nil
}

func (s *service) ListByBranch(ctx context.Context, act actor.Actor, branchID uuid.UUID) ([]models.Coupon, error) {
	if !act.CanManageBranch(branchID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to view coupons for this branch")
	}
	coupons, err := s.repo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list coupons")
	}
	return coupons, nil
}

// Discount computes the amount a coupon takes off a subtotal. The result
// is rounded to cents and never exceeds the subtotal.
func Discount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		amount = subtotal.Mul(coupon.Value).Div(decimal.NewFromInt(100)).Round(2)
	case enums.DiscountTypeFixed:
		amount = coupon.Value
	default:
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

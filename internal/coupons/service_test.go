package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	apperrors "github.com/souqline/souqline-backend/pkg/errors"
)

type fakeRepo struct {
	coupons       map[uuid.UUID]*models.Coupon
	created       []*models.Coupon
	deleted       int
	incrementErr  error
	incrementHits int
}

func newFakeRepo(coupons ...*models.Coupon) *fakeRepo {
	m := make(map[uuid.UUID]*models.Coupon, len(coupons))
	for _, c := range coupons {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		m[c.ID] = c
	}
	return &fakeRepo{coupons: m}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(_ context.Context, coupon *models.Coupon) error {
	coupon.ID = uuid.New()
	f.coupons[coupon.ID] = coupon
	f.created = append(f.created, coupon)
	return nil
}

func (f *fakeRepo) Update(_ context.Context, coupon *models.Coupon) error {
	f.coupons[coupon.ID] = coupon
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, branchID, couponID uuid.UUID) (bool, error) {
	c, ok := f.coupons[couponID]
	if !ok || c.BranchID != branchID {
		return false, nil
	}
	delete(f.coupons, couponID)
	f.deleted++
	return true, nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	if c, ok := f.coupons[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindActiveByCode(_ context.Context, branchID uuid.UUID, code string) (*models.Coupon, error) {
	for _, c := range f.coupons {
		if c.BranchID == branchID && c.Code == code && c.IsActive {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListByBranch(_ context.Context, branchID uuid.UUID) ([]models.Coupon, error) {
	var out []models.Coupon
	for _, c := range f.coupons {
		if c.BranchID == branchID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRepo) IncrementUsage(_ context.Context, couponID uuid.UUID) (bool, error) {
	f.incrementHits++
	if f.incrementErr != nil {
		return false, f.incrementErr
	}
	c, ok := f.coupons[couponID]
	if !ok || !c.IsActive {
		return false, nil
	}
	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return false, nil
	}
	c.UsageCount++
	return true, nil
}

type fakeOrderLookup struct {
	used bool
	err  error
}

func (f *fakeOrderLookup) HasCouponOrder(context.Context, uuid.UUID, uuid.UUID, string) (bool, error) {
	return f.used, f.err
}

func newTestService(t *testing.T, repo *fakeRepo, orders *fakeOrderLookup) *service {
	t.Helper()
	svc, err := NewService(repo, orders)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	s := svc.(*service)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func activeCoupon(branchID uuid.UUID) *models.Coupon {
	return &models.Coupon{
		ID:             uuid.New(),
		BranchID:       branchID,
		Code:           "SPRING10",
		DiscountType:   enums.DiscountTypePercentage,
		Value:          decimal.NewFromInt(10),
		MinOrderAmount: decimal.NewFromInt(50),
		ExpiryDate:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		IsActive:       true,
		UsageLimit:     5,
	}
}

func TestValidateHappyPath(t *testing.T) {
	branchID := uuid.New()
	coupon := activeCoupon(branchID)
	svc := newTestService(t, newFakeRepo(coupon), &fakeOrderLookup{})

	quote, err := svc.Validate(context.Background(), uuid.New(), branchID, " spring10 ", decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if quote.Coupon.ID != coupon.ID {
		t.Fatalf("expected coupon %s, got %s", coupon.ID, quote.Coupon.ID)
	}
	if !quote.DiscountAmount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected discount 20, got %s", quote.DiscountAmount)
	}
}

func TestValidateAtExactExpiryInstant(t *testing.T) {
	branchID := uuid.New()
	coupon := activeCoupon(branchID)
	// Expiry equal to the current time is still valid; only time strictly
	// past the expiry date rejects.
	coupon.ExpiryDate = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, newFakeRepo(coupon), &fakeOrderLookup{})

	if _, err := svc.Validate(context.Background(), uuid.New(), branchID, "SPRING10", decimal.NewFromInt(200)); err != nil {
		t.Fatalf("Validate at expiry instant: %v", err)
	}
}

func TestValidateFailureModes(t *testing.T) {
	branchID := uuid.New()
	buyerID := uuid.New()

	tests := []struct {
		name     string
		coupon   func() *models.Coupon
		orders   *fakeOrderLookup
		subtotal decimal.Decimal
		wantCode apperrors.Code
	}{
		{
			name: "unknown code",
			coupon: func() *models.Coupon {
				c := activeCoupon(branchID)
				c.Code = "OTHER"
				return c
			},
			orders:   &fakeOrderLookup{},
			subtotal: decimal.NewFromInt(200),
			wantCode: apperrors.CodeValidation,
		},
		{
			name: "inactive coupon",
			coupon: func() *models.Coupon {
				c := activeCoupon(branchID)
				c.IsActive = false
				return c
			},
			orders:   &fakeOrderLookup{},
			subtotal: decimal.NewFromInt(200),
			wantCode: apperrors.CodeValidation,
		},
		{
			name: "expired coupon",
			coupon: func() *models.Coupon {
				c := activeCoupon(branchID)
				c.ExpiryDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
				return c
			},
			orders:   &fakeOrderLookup{},
			subtotal: decimal.NewFromInt(200),
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "subtotal below minimum",
			coupon:   func() *models.Coupon { return activeCoupon(branchID) },
			orders:   &fakeOrderLookup{},
			subtotal: decimal.NewFromInt(49),
			wantCode: apperrors.CodeValidation,
		},
		{
			name: "usage limit reached",
			coupon: func() *models.Coupon {
				c := activeCoupon(branchID)
				c.UsageCount = 5
				return c
			},
			orders:   &fakeOrderLookup{},
			subtotal: decimal.NewFromInt(200),
			wantCode: apperrors.CodeConflict,
		},
		{
			name:     "already used by buyer",
			coupon:   func() *models.Coupon { return activeCoupon(branchID) },
			orders:   &fakeOrderLookup{used: true},
			subtotal: decimal.NewFromInt(200),
			wantCode: apperrors.CodeConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, newFakeRepo(tc.coupon()), tc.orders)
			_, err := svc.Validate(context.Background(), buyerID, branchID, "SPRING10", tc.subtotal)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !apperrors.HasCode(err, tc.wantCode) {
				t.Fatalf("expected code %s, got %v", tc.wantCode, err)
			}
		})
	}
}

func TestValidateUnlimitedUsage(t *testing.T) {
	branchID := uuid.New()
	coupon := activeCoupon(branchID)
	coupon.UsageLimit = 0
	coupon.UsageCount = 10_000
	svc := newTestService(t, newFakeRepo(coupon), &fakeOrderLookup{})

	if _, err := svc.Validate(context.Background(), uuid.New(), branchID, "SPRING10", decimal.NewFromInt(200)); err != nil {
		t.Fatalf("Validate with unlimited coupon: %v", err)
	}
}

func TestRedeemStopsAtLimit(t *testing.T) {
	branchID := uuid.New()
	coupon := activeCoupon(branchID)
	coupon.UsageLimit = 1
	repo := newFakeRepo(coupon)
	svc := newTestService(t, repo, &fakeOrderLookup{})

	if err := svc.Redeem(context.Background(), nil, coupon.ID); err != nil {
		t.Fatalf("first Redeem: %v", err)
	}
	err := svc.Redeem(context.Background(), nil, coupon.ID)
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict on second redeem, got %v", err)
	}
	if coupon.UsageCount != 1 {
		t.Fatalf("usage count = %d, want 1", coupon.UsageCount)
	}
}

func TestDiscountClampedToSubtotal(t *testing.T) {
	coupon := &models.Coupon{
		DiscountType: enums.DiscountTypeFixed,
		Value:        decimal.NewFromInt(30),
	}
	got := Discount(coupon, decimal.NewFromInt(25))
	if !got.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected discount clamped to 25, got %s", got)
	}
}

func TestCreateAuthorization(t *testing.T) {
	branchID := uuid.New()
	otherBranch := uuid.New()
	repo := newFakeRepo()
	svc := newTestService(t, repo, &fakeOrderLookup{})

	in := CreateInput{
		Code:         "WELCOME",
		DiscountType: enums.DiscountTypeFixed,
		Value:        decimal.NewFromInt(5),
		ExpiryDate:   time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
	}

	branchAdmin := actor.Actor{UserID: uuid.New(), Role: enums.RoleBranchAdmin, BranchID: &otherBranch}
	if _, err := svc.Create(context.Background(), branchAdmin, branchID, in); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden for other branch's admin, got %v", err)
	}

	platform := actor.Actor{UserID: uuid.New(), Role: enums.RolePlatformAdmin}
	coupon, err := svc.Create(context.Background(), platform, branchID, in)
	if err != nil {
		t.Fatalf("Create as platform admin: %v", err)
	}
	if coupon.Code != "WELCOME" || !coupon.IsActive {
		t.Fatalf("unexpected created coupon: %+v", coupon)
	}
}

func TestCreateRejectsBadPercentage(t *testing.T) {
	branchID := uuid.New()
	svc := newTestService(t, newFakeRepo(), &fakeOrderLookup{})
	admin := actor.Actor{UserID: uuid.New(), Role: enums.RoleBranchAdmin, BranchID: &branchID}

	_, err := svc.Create(context.Background(), admin, branchID, CreateInput{
		Code:         "TOOMUCH",
		DiscountType: enums.DiscountTypePercentage,
		Value:        decimal.NewFromInt(150),
		ExpiryDate:   time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
	})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateScopedToBranch(t *testing.T) {
	branchID := uuid.New()
	coupon := activeCoupon(branchID)
	svc := newTestService(t, newFakeRepo(coupon), &fakeOrderLookup{})
	platform := actor.Actor{UserID: uuid.New(), Role: enums.RolePlatformAdmin}

	_, err := svc.Update(context.Background(), platform, uuid.New(), coupon.ID, UpdateInput{})
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found for wrong branch, got %v", err)
	}

	inactive := false
	updated, err := svc.Update(context.Background(), platform, branchID, coupon.ID, UpdateInput{IsActive: &inactive})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.IsActive {
		t.Fatal("expected coupon to be deactivated")
	}
}

package finance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/internal/taxes"
	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	apperrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/outbox"
)

const financeSchema = `
CREATE TABLE finance_payments (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  branch_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  transaction_ref TEXT NOT NULL,
  type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  message TEXT,
  period TEXT,
  proof_url TEXT,
  decided_by TEXT,
  decided_at DATETIME,
  created_at DATETIME
);
CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type fakeAccrualOrders struct {
	orders []models.Order
}

func (f *fakeAccrualOrders) ListNonCancelledByBranch(context.Context, uuid.UUID) ([]models.Order, error) {
	return f.orders, nil
}

type fakeBranchReader struct {
	branch *models.Branch
}

func (f *fakeBranchReader) FindByID(context.Context, uuid.UUID) (*models.Branch, error) {
	if f.branch == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.branch, nil
}

type fakeUserReader struct {
	user *models.User
}

func (f *fakeUserReader) FindByID(context.Context, uuid.UUID) (*models.User, error) {
	return f.user, nil
}

type fakeRateSource struct {
	rates taxes.CategoryRates
}

func (f *fakeRateSource) CategoryRates(context.Context, []string) (taxes.CategoryRates, error) {
	return f.rates, nil
}

type countingNotifier struct {
	count int
}

func (c *countingNotifier) Notify(context.Context, uuid.UUID, enums.NotificationKind, string, string) error {
	c.count++
	return nil
}

type financeFixture struct {
	db       *gorm.DB
	svc      *service
	branch   *models.Branch
	owner    *models.User
	orders   *fakeAccrualOrders
	notifier *countingNotifier
	admin    actor.Actor
	platform actor.Actor
}

func setupFinance(t *testing.T) *financeFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(financeSchema).Error)

	branchID := uuid.New()
	owner := &models.User{ID: uuid.New(), Email: "owner@souqline.test", FullName: "Owner", Role: enums.RoleBranchAdmin, BranchID: &branchID}
	branch := &models.Branch{
		ID:        branchID,
		OwnerID:   owner.ID,
		Name:      "Souq Central",
		Country:   "AE",
		Status:    enums.BranchStatusActive,
		CreatedAt: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	orders := &fakeAccrualOrders{}
	notif := &countingNotifier{}
	svc, err := NewService(Deps{
		Repo:     NewRepository(db),
		Tx:       gormTxRunner{db: db},
		Orders:   orders,
		Branches: &fakeBranchReader{branch: branch},
		Users:    &fakeUserReader{user: owner},
		Rates:    &fakeRateSource{rates: taxes.CategoryRates{}},
		Notifier: notif,
		Outbox:   outbox.NewService(outbox.NewRepository(db), logg),
		Logger:   logg,
	})
	require.NoError(t, err)

	s := svc.(*service)
	s.now = func() time.Time { return time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC) }

	return &financeFixture{
		db:       db,
		svc:      s,
		branch:   branch,
		owner:    owner,
		orders:   orders,
		notifier: notif,
		admin:    actor.Actor{UserID: owner.ID, Role: enums.RoleBranchAdmin, BranchID: &branchID},
		platform: actor.Actor{UserID: uuid.New(), Role: enums.RolePlatformAdmin},
	}
}

func submitTaxPayment(t *testing.T, f *financeFixture, amount int64) *models.FinancePayment {
	t.Helper()
	payment, err := f.svc.SubmitPayment(context.Background(), f.admin, f.branch.ID, SubmitInput{
		Amount:         decimal.NewFromInt(amount),
		TransactionRef: "BANK-2026-0001",
		Type:           enums.FinancePaymentTypeTax,
	})
	require.NoError(t, err)
	return payment
}

func TestSubmitPaymentValidation(t *testing.T) {
	f := setupFinance(t)

	_, err := f.svc.SubmitPayment(context.Background(), f.admin, f.branch.ID, SubmitInput{
		Amount:         decimal.NewFromInt(-5),
		TransactionRef: "BANK-1",
		Type:           enums.FinancePaymentTypeTax,
	})
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	stranger := actor.Actor{UserID: uuid.New(), Role: enums.RoleUser}
	_, err = f.svc.SubmitPayment(context.Background(), stranger, f.branch.ID, SubmitInput{
		Amount:         decimal.NewFromInt(10),
		TransactionRef: "BANK-1",
		Type:           enums.FinancePaymentTypeTax,
	})
	require.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestDecideIsOneWay(t *testing.T) {
	f := setupFinance(t)
	payment := submitTaxPayment(t, f, 100)

	_, err := f.svc.Decide(context.Background(), f.admin, payment.ID, true, nil)
	require.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	decided, err := f.svc.Decide(context.Background(), f.platform, payment.ID, true, nil)
	require.NoError(t, err)
	require.Equal(t, enums.FinancePaymentStatusApproved, decided.Status)
	require.Equal(t, 1, f.notifier.count)

	_, err = f.svc.Decide(context.Background(), f.platform, payment.ID, false, nil)
	require.True(t, apperrors.HasCode(err, apperrors.CodeStateConflict))

	var fresh models.FinancePayment
	require.NoError(t, f.db.First(&fresh, "id = ?", payment.ID).Error)
	require.Equal(t, enums.FinancePaymentStatusApproved, fresh.Status)
}

func TestSummaryDerivesOutstanding(t *testing.T) {
	f := setupFinance(t)
	rate := decimal.NewFromInt(5)
	f.owner.TaxRate = &rate

	// Two orders: 200+10 shipping at 5% each → 10.50 accrued apiece.
	for i := 0; i < 2; i++ {
		f.orders.orders = append(f.orders.orders, models.Order{
			ID:           uuid.New(),
			BranchID:     f.branch.ID,
			Status:       enums.OrderStatusCompleted,
			TotalAmount:  decimal.NewFromInt(200),
			ShippingCost: decimal.NewFromInt(10),
		})
	}

	payment := submitTaxPayment(t, f, 10)
	_, err := f.svc.Decide(context.Background(), f.platform, payment.ID, true, nil)
	require.NoError(t, err)

	// A rejected payment never counts as paid.
	rejected := submitTaxPayment(t, f, 500)
	_, err = f.svc.Decide(context.Background(), f.platform, rejected.ID, false, nil)
	require.NoError(t, err)

	summary, err := f.svc.GetSummary(context.Background(), f.admin, f.branch.ID)
	require.NoError(t, err)
	require.True(t, summary.AccruedTax.Equal(decimal.RequireFromString("21.00")), summary.AccruedTax.String())
	require.True(t, summary.PaidTax.Equal(decimal.NewFromInt(10)), summary.PaidTax.String())
	require.True(t, summary.OutstandingTax.Equal(decimal.RequireFromString("11.00")), summary.OutstandingTax.String())

	// Recomputing over unchanged inputs reproduces the same figures.
	again, err := f.svc.GetSummary(context.Background(), f.admin, f.branch.ID)
	require.NoError(t, err)
	require.True(t, summary.AccruedTax.Equal(again.AccruedTax))
	require.True(t, summary.OutstandingTax.Equal(again.OutstandingTax))
}

func TestSummaryOutstandingNeverNegative(t *testing.T) {
	f := setupFinance(t)

	// Overpayment: approved 100 against zero accrual.
	payment := submitTaxPayment(t, f, 100)
	_, err := f.svc.Decide(context.Background(), f.platform, payment.ID, true, nil)
	require.NoError(t, err)

	summary, err := f.svc.GetSummary(context.Background(), f.admin, f.branch.ID)
	require.NoError(t, err)
	require.True(t, summary.OutstandingTax.IsZero(), summary.OutstandingTax.String())
}

func TestSubscriptionDues(t *testing.T) {
	f := setupFinance(t)
	fee := decimal.NewFromInt(50)
	f.owner.MonthlySubscriptionFee = &fee

	// Branch created 2026-01-15, now 2026-03-20: Jan, Feb, Mar → 3 months.
	summary, err := f.svc.GetSummary(context.Background(), f.admin, f.branch.ID)
	require.NoError(t, err)
	require.True(t, summary.SubscriptionDue.Equal(decimal.NewFromInt(150)), summary.SubscriptionDue.String())
	require.True(t, summary.OutstandingSubscription.Equal(decimal.NewFromInt(150)))
}

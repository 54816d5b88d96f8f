package users

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

	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	apperrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/outbox"
)

const usersSchema = `
CREATE TABLE users (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  email TEXT NOT NULL UNIQUE,
  full_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  branch_id TEXT,
  country TEXT NOT NULL DEFAULT '',
  category TEXT,
  tax_rate NUMERIC,
  monthly_subscription_fee NUMERIC,
  plan_tier TEXT,
  suspended_until DATETIME,
  suspension_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
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

type countingNotifier struct {
	count int
	kind  enums.NotificationKind
}

func (c *countingNotifier) Notify(_ context.Context, _ uuid.UUID, kind enums.NotificationKind, _, _ string) error {
	c.count++
	c.kind = kind
	return nil
}

type usersFixture struct {
	db       *gorm.DB
	svc      Service
	notifier *countingNotifier
	user     *models.User
	platform actor.Actor
	now      time.Time
}

func setupUsers(t *testing.T) *usersFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(usersSchema).Error)

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	notifier := &countingNotifier{}

	svc, err := NewService(Deps{
		Repo:     NewRepository(db),
		Tx:       gormTxRunner{db: db},
		Notifier: notifier,
		Outbox:   outbox.NewService(outbox.NewRepository(db), logg),
		Logger:   logg,
	})
	require.NoError(t, err)

	user := &models.User{
		ID:       uuid.New(),
		Email:    "buyer@souqline.test",
		FullName: "Test Buyer",
		Role:     enums.RoleUser,
	}
	require.NoError(t, db.Create(user).Error)

	typed := svc.(*service)
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	typed.now = func() time.Time { return now }

	return &usersFixture{
		db:       db,
		svc:      svc,
		notifier: notifier,
		user:     user,
		platform: actor.Actor{UserID: uuid.New(), Role: enums.RolePlatformAdmin},
		now:      now,
	}
}

func TestSuspendBlocksAccountAndNotifies(t *testing.T) {
	f := setupUsers(t)

	until := f.now.Add(72 * time.Hour)
	updated, err := f.svc.Suspend(context.Background(), f.platform, f.user.ID, SuspendInput{
		Until:  until,
		Reason: "chargeback abuse",
	})
	require.NoError(t, err)
	require.NotNil(t, updated.SuspendedUntil)
	require.True(t, updated.IsSuspended(f.now))
	require.Equal(t, 1, f.notifier.count)
	require.Equal(t, enums.NotificationKindAccount, f.notifier.kind)

	var events int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventUserSuspended).
		Count(&events).Error)
	require.EqualValues(t, 1, events)
}

func TestSuspendRequiresPlatformRole(t *testing.T) {
	f := setupUsers(t)

	branchAdmin := actor.Actor{UserID: uuid.New(), Role: enums.RoleBranchAdmin}
	_, err := f.svc.Suspend(context.Background(), branchAdmin, f.user.ID, SuspendInput{
		Until:  f.now.Add(time.Hour),
		Reason: "spam",
	})
	require.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestSuspendRejectsPastWindow(t *testing.T) {
	f := setupUsers(t)

	_, err := f.svc.Suspend(context.Background(), f.platform, f.user.ID, SuspendInput{
		Until:  f.now.Add(-time.Hour),
		Reason: "spam",
	})
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestReinstateClearsSuspension(t *testing.T) {
	f := setupUsers(t)

	until := f.now.Add(24 * time.Hour)
	_, err := f.svc.Suspend(context.Background(), f.platform, f.user.ID, SuspendInput{
		Until:  until,
		Reason: "review pending",
	})
	require.NoError(t, err)

	updated, err := f.svc.Reinstate(context.Background(), f.platform, f.user.ID)
	require.NoError(t, err)
	require.Nil(t, updated.SuspendedUntil)
	require.False(t, updated.IsSuspended(f.now))
}

func TestSetTaxRateValidation(t *testing.T) {
	f := setupUsers(t)

	negative := decimal.NewFromInt(-5)
	err := f.svc.SetTaxRate(context.Background(), f.platform, f.user.ID, &negative)
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	rate := decimal.RequireFromString("8.5")
	require.NoError(t, f.svc.SetTaxRate(context.Background(), f.platform, f.user.ID, &rate))

	reloaded, err := f.svc.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.TaxRate)
	require.True(t, reloaded.TaxRate.Equal(rate))

	// Clearing the override falls checkout back to category rates.
	require.NoError(t, f.svc.SetTaxRate(context.Background(), f.platform, f.user.ID, nil))
	reloaded, err = f.svc.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.TaxRate)
}

func TestSetSubscription(t *testing.T) {
	f := setupUsers(t)

	fee := decimal.NewFromInt(50)
	tier := "standard"
	require.NoError(t, f.svc.SetSubscription(context.Background(), f.platform, f.user.ID, &fee, &tier))

	reloaded, err := f.svc.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.MonthlySubscriptionFee)
	require.True(t, reloaded.MonthlySubscriptionFee.Equal(fee))
	require.Equal(t, "standard", *reloaded.PlanTier)
}

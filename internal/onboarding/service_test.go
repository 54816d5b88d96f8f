package onboarding

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/internal/branches"
	"github.com/souqline/souqline-backend/internal/countries"
	"github.com/souqline/souqline-backend/internal/users"
	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	apperrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/outbox"
)

const onboardingSchema = `
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
CREATE TABLE branches (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'active',
  rating NUMERIC NOT NULL DEFAULT 0,
  review_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE branch_requests (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  user_id TEXT NOT NULL,
  shop_name TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  proof_url TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
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

type countingNotifier struct {
	count int
}

func (c *countingNotifier) Notify(context.Context, uuid.UUID, enums.NotificationKind, string, string) error {
	c.count++
	return nil
}

type onboardingFixture struct {
	db        *gorm.DB
	svc       Service
	notifier  *countingNotifier
	applicant *models.User
	platform  actor.Actor
}

func setupOnboarding(t *testing.T) *onboardingFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(onboardingSchema).Error)

	applicant := &models.User{
		ID:       uuid.New(),
		Email:    "seller@souqline.test",
		FullName: "Seller",
		Role:     enums.RoleUser,
	}
	require.NoError(t, db.Create(applicant).Error)

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	notif := &countingNotifier{}
	svc, err := NewService(Deps{
		Repo:      NewRepository(db),
		Tx:        gormTxRunner{db: db},
		Users:     users.NewRepository(db),
		Branches:  branches.NewRepository(db),
		Countries: countries.Default(),
		Notifier:  notif,
		Outbox:    outbox.NewService(outbox.NewRepository(db), logg),
		Logger:    logg,
	})
	require.NoError(t, err)

	return &onboardingFixture{
		db:        db,
		svc:       svc,
		notifier:  notif,
		applicant: applicant,
		platform:  actor.Actor{UserID: uuid.New(), Role: enums.RolePlatformAdmin},
	}
}

func (f *onboardingFixture) applicantActor() actor.Actor {
	return actor.Actor{UserID: f.applicant.ID, Role: enums.RoleUser}
}

func submitRequest(t *testing.T, f *onboardingFixture) *models.BranchRequest {
	t.Helper()
	request, err := f.svc.Submit(context.Background(), f.applicantActor(), SubmitInput{
		ShopName: "Corner Spices",
		Category: "food",
		Country:  "ae",
		ProofURL: "https://files.souqline.test/proof/1.pdf",
	})
	require.NoError(t, err)
	return request
}

func TestSubmitValidatesCountry(t *testing.T) {
	f := setupOnboarding(t)
	_, err := f.svc.Submit(context.Background(), f.applicantActor(), SubmitInput{
		ShopName: "Corner Spices",
		Country:  "ZZ",
		ProofURL: "https://files.souqline.test/proof/1.pdf",
	})
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestSubmitRejectsDuplicatePending(t *testing.T) {
	f := setupOnboarding(t)
	submitRequest(t, f)
	_, err := f.svc.Submit(context.Background(), f.applicantActor(), SubmitInput{
		ShopName: "Second Shop",
		Country:  "AE",
		ProofURL: "https://files.souqline.test/proof/2.pdf",
	})
	require.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestRejectIsTerminal(t *testing.T) {
	f := setupOnboarding(t)
	request := submitRequest(t, f)

	rejected, err := f.svc.Reject(context.Background(), f.platform, request.ID)
	require.NoError(t, err)
	require.Equal(t, enums.BranchRequestStatusRejected, rejected.Status)
	require.Equal(t, 1, f.notifier.count)

	_, err = f.svc.Reject(context.Background(), f.platform, request.ID)
	require.True(t, apperrors.HasCode(err, apperrors.CodeStateConflict))
}

func TestApprovePromotesAndCreatesBranch(t *testing.T) {
	f := setupOnboarding(t)
	request := submitRequest(t, f)

	approved, err := f.svc.Approve(context.Background(), f.platform, request.ID)
	require.NoError(t, err)
	require.Equal(t, enums.BranchRequestStatusApproved, approved.Status)

	wantBranchID := BranchIDFor(f.applicant.ID)

	var user models.User
	require.NoError(t, f.db.First(&user, "id = ?", f.applicant.ID).Error)
	require.Equal(t, enums.RoleBranchAdmin, user.Role)
	require.NotNil(t, user.BranchID)
	require.Equal(t, wantBranchID, *user.BranchID)

	var branch models.Branch
	require.NoError(t, f.db.First(&branch, "id = ?", wantBranchID).Error)
	require.Equal(t, f.applicant.ID, branch.OwnerID)
	require.Equal(t, "Corner Spices", branch.Name)
	require.True(t, branch.Rating.IsZero())
	require.Zero(t, branch.ReviewCount)
}

func TestApproveCopiesShopProfileToApplicant(t *testing.T) {
	f := setupOnboarding(t)
	request := submitRequest(t, f)

	_, err := f.svc.Approve(context.Background(), f.platform, request.ID)
	require.NoError(t, err)

	var user models.User
	require.NoError(t, f.db.First(&user, "id = ?", f.applicant.ID).Error)
	require.Equal(t, "AE", user.Country)
	require.NotNil(t, user.Category)
	require.Equal(t, "food", *user.Category)
}

func TestApproveIsIdempotent(t *testing.T) {
	f := setupOnboarding(t)
	request := submitRequest(t, f)

	_, err := f.svc.Approve(context.Background(), f.platform, request.ID)
	require.NoError(t, err)

	// Operator double-click or crash-retry: the second run converges on
	// the same end state instead of failing or duplicating anything.
	again, err := f.svc.Approve(context.Background(), f.platform, request.ID)
	require.NoError(t, err)
	require.Equal(t, enums.BranchRequestStatusApproved, again.Status)

	var branchCount int64
	require.NoError(t, f.db.Model(&models.Branch{}).Count(&branchCount).Error)
	require.EqualValues(t, 1, branchCount)

	var eventCount int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventBranchApproved).Count(&eventCount).Error)
	require.EqualValues(t, 1, eventCount)

	require.Equal(t, 1, f.notifier.count)
}

func TestApproveAfterRejectFails(t *testing.T) {
	f := setupOnboarding(t)
	request := submitRequest(t, f)

	_, err := f.svc.Reject(context.Background(), f.platform, request.ID)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), f.platform, request.ID)
	require.True(t, apperrors.HasCode(err, apperrors.CodeStateConflict))
}

func TestBranchIDDeterministic(t *testing.T) {
	userID := uuid.New()
	require.Equal(t, BranchIDFor(userID), BranchIDFor(userID))
	require.NotEqual(t, BranchIDFor(userID), BranchIDFor(uuid.New()))
}

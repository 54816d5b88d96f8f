package disputes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
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

const disputesSchema = `
CREATE TABLE disputes (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  order_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  branch_id TEXT NOT NULL,
  reason TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'open',
  resolution TEXT,
  resolved_by TEXT,
  resolved_at DATETIME,
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

type fakeOrderReader struct {
	orders map[uuid.UUID]*models.Order
}

func (f *fakeOrderReader) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type recordingNotifier struct {
	count int
}

func (r *recordingNotifier) Notify(context.Context, uuid.UUID, enums.NotificationKind, string, string) error {
	r.count++
	return nil
}

type disputeFixture struct {
	db       *gorm.DB
	svc      Service
	notifier *recordingNotifier
	order    *models.Order
	buyer    actor.Actor
	admin    actor.Actor
}

func setupDisputes(t *testing.T, orderStatus enums.OrderStatus) *disputeFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(disputesSchema).Error)

	branchID := uuid.New()
	buyerID := uuid.New()
	order := &models.Order{
		ID:       uuid.New(),
		BuyerID:  buyerID,
		BranchID: branchID,
		Status:   orderStatus,
	}

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	notif := &recordingNotifier{}
	svc, err := NewService(Deps{
		Repo:     NewRepository(db),
		Tx:       gormTxRunner{db: db},
		Orders:   &fakeOrderReader{orders: map[uuid.UUID]*models.Order{order.ID: order}},
		Notifier: notif,
		Outbox:   outbox.NewService(outbox.NewRepository(db), logg),
		Logger:   logg,
	})
	require.NoError(t, err)

	return &disputeFixture{
		db:       db,
		svc:      svc,
		notifier: notif,
		order:    order,
		buyer:    actor.Actor{UserID: buyerID, Role: enums.RoleUser},
		admin:    actor.Actor{UserID: uuid.New(), Role: enums.RoleBranchAdmin, BranchID: &branchID},
	}
}

func TestOpenRequiresTerminalOrder(t *testing.T) {
	f := setupDisputes(t, enums.OrderStatusPending)
	_, err := f.svc.Open(context.Background(), f.buyer, OpenInput{OrderID: f.order.ID, Reason: "damaged item"})
	require.True(t, apperrors.HasCode(err, apperrors.CodeStateConflict))
}

func TestOpenRequiresOwnership(t *testing.T) {
	f := setupDisputes(t, enums.OrderStatusCompleted)
	stranger := actor.Actor{UserID: uuid.New(), Role: enums.RoleUser}
	_, err := f.svc.Open(context.Background(), stranger, OpenInput{OrderID: f.order.ID, Reason: "damaged item"})
	require.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestOpenRejectsDuplicate(t *testing.T) {
	f := setupDisputes(t, enums.OrderStatusCompleted)
	_, err := f.svc.Open(context.Background(), f.buyer, OpenInput{OrderID: f.order.ID, Reason: "damaged item"})
	require.NoError(t, err)

	_, err = f.svc.Open(context.Background(), f.buyer, OpenInput{OrderID: f.order.ID, Reason: "still damaged"})
	require.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestResolveFirstWriterWins(t *testing.T) {
	f := setupDisputes(t, enums.OrderStatusCompleted)
	dispute, err := f.svc.Open(context.Background(), f.buyer, OpenInput{OrderID: f.order.ID, Reason: "damaged item"})
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(context.Background(), f.admin, dispute.ID, "refund issued")
	require.NoError(t, err)
	require.Equal(t, enums.DisputeStatusResolved, resolved.Status)
	require.NotNil(t, resolved.Resolution)
	require.Equal(t, "refund issued", *resolved.Resolution)
	require.Equal(t, 1, f.notifier.count)

	// Replay with different text: the stored resolution stays, the buyer
	// is not notified again.
	replayed, err := f.svc.Resolve(context.Background(), f.admin, dispute.ID, "store credit instead")
	require.NoError(t, err)
	require.Equal(t, "refund issued", *replayed.Resolution)
	require.Equal(t, 1, f.notifier.count)

	var events int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventDisputeResolved).Count(&events).Error)
	require.EqualValues(t, 1, events)
}

func TestCloseRequiresResolved(t *testing.T) {
	f := setupDisputes(t, enums.OrderStatusCompleted)
	dispute, err := f.svc.Open(context.Background(), f.buyer, OpenInput{OrderID: f.order.ID, Reason: "damaged item"})
	require.NoError(t, err)

	_, err = f.svc.Close(context.Background(), f.admin, dispute.ID)
	require.True(t, apperrors.HasCode(err, apperrors.CodeStateConflict))

	_, err = f.svc.Resolve(context.Background(), f.admin, dispute.ID, "refund issued")
	require.NoError(t, err)

	closed, err := f.svc.Close(context.Background(), f.admin, dispute.ID)
	require.NoError(t, err)
	require.Equal(t, enums.DisputeStatusClosed, closed.Status)

	// A closed dispute rejects late resolution attempts.
	_, err = f.svc.Resolve(context.Background(), f.admin, dispute.ID, "too late")
	require.True(t, apperrors.HasCode(err, apperrors.CodeStateConflict))
}

func TestBuyerCannotResolve(t *testing.T) {
	f := setupDisputes(t, enums.OrderStatusCompleted)
	dispute, err := f.svc.Open(context.Background(), f.buyer, OpenInput{OrderID: f.order.ID, Reason: "damaged item"})
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), f.buyer, dispute.ID, "self-service refund")
	require.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/enums"
	apperrors "github.com/souqline/souqline-backend/pkg/errors"
)

func setupNotifications(t *testing.T) Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE notifications (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  user_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestNotifyAndList(t *testing.T) {
	svc := setupNotifications(t)
	userID := uuid.New()
	act := actor.Actor{UserID: userID, Role: enums.RoleUser}

	require.NoError(t, svc.Notify(context.Background(), userID, enums.NotificationKindOrder, "Order completed", "Your order is done."))
	require.NoError(t, svc.Notify(context.Background(), userID, enums.NotificationKindDispute, "Dispute resolved", "Refund issued."))
	require.NoError(t, svc.Notify(context.Background(), uuid.New(), enums.NotificationKindOrder, "Other user", "Not yours."))

	listed, err := svc.ListForUser(context.Background(), act, false, 0)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	count, err := svc.UnreadCount(context.Background(), act)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestNotifyRejectsBadInput(t *testing.T) {
	svc := setupNotifications(t)
	err := svc.Notify(context.Background(), uuid.Nil, enums.NotificationKindOrder, "title", "msg")
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	err = svc.Notify(context.Background(), uuid.New(), enums.NotificationKind("sms"), "title", "msg")
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestMarkReadScopedToOwner(t *testing.T) {
	svc := setupNotifications(t)
	userID := uuid.New()
	act := actor.Actor{UserID: userID, Role: enums.RoleUser}

	require.NoError(t, svc.Notify(context.Background(), userID, enums.NotificationKindOrder, "Order completed", "done"))
	listed, err := svc.ListForUser(context.Background(), act, true, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	stranger := actor.Actor{UserID: uuid.New(), Role: enums.RoleUser}
	err = svc.MarkRead(context.Background(), stranger, listed[0].ID)
	require.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	require.NoError(t, svc.MarkRead(context.Background(), act, listed[0].ID))

	count, err := svc.UnreadCount(context.Background(), act)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestMarkAllRead(t *testing.T) {
	svc := setupNotifications(t)
	userID := uuid.New()
	act := actor.Actor{UserID: userID, Role: enums.RoleUser}

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Notify(context.Background(), userID, enums.NotificationKindFinance, "Payment update", "decided"))
	}

	updated, err := svc.MarkAllRead(context.Background(), act)
	require.NoError(t, err)
	require.EqualValues(t, 3, updated)

	updated, err = svc.MarkAllRead(context.Background(), act)
	require.NoError(t, err)
	require.Zero(t, updated)
}

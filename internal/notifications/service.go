package notifications

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	apperrors "github.com/souqline/souqline-backend/pkg/errors"
)

// Service stores and serves in-app notifications. Notify is the write side
// every other domain service depends on.
type Service interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind, title, message string) error
	ListForUser(ctx context.Context, act actor.Actor, unreadOnly bool, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, act actor.Actor) (int64, error)
	MarkRead(ctx context.Context, act actor.Actor, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, act actor.Actor) (int64, error)
}

type service struct {
	repo Repository
}

// NewService builds the notification service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("notifications: repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind, title, message string) error {
	if userID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "notification recipient is required")
	}
	if !kind.IsValid() {
		return apperrors.New(apperrors.CodeValidation, "unknown notification kind")
	}
	if strings.TrimSpace(title) == "" {
		return apperrors.New(apperrors.CodeValidation, "notification title is required")
	}

	notification := &models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Message: message,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to store notification")
	}
	return nil
}

func (s *service) ListForUser(ctx context.Context, act actor.Actor, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	notifications, err := s.repo.ListByUser(ctx, act.UserID, unreadOnly, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list notifications")
	}
	return notifications, nil
}

func (s *service) UnreadCount(ctx context.Context, act actor.Actor) (int64, error) {
	count, err := s.repo.CountUnread(ctx, act.UserID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "failed to count notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, act actor.Actor, notificationID uuid.UUID) error {
	ok, err := s.repo.MarkRead(ctx, act.UserID, notificationID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to mark notification read")
	}
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, act actor.Actor) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, act.UserID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "failed to mark notifications read")
	}
	return updated, nil
}

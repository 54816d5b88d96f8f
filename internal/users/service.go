package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

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

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind, title, message string) error
}

// SuspendInput is a platform moderation action against an account.
type SuspendInput struct {
	Until  time.Time `json:"until" validate:"required"`
	Reason string    `json:"reason" validate:"required,min=3,max=500"`
}

// Service exposes account reads and the platform moderation surface.
type Service interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	// Suspend blocks the account until the given time and notifies the user.
	Suspend(ctx context.Context, act actor.Actor, userID uuid.UUID, in SuspendInput) (*models.User, error)
	Reinstate(ctx context.Context, act actor.Actor, userID uuid.UUID) (*models.User, error)
	// SetTaxRate sets or clears a seller's branch-wide tax override.
	SetTaxRate(ctx context.Context, act actor.Actor, userID uuid.UUID, rate *decimal.Decimal) error
	SetSubscription(ctx context.Context, act actor.Actor, userID uuid.UUID, fee *decimal.Decimal, planTier *string) error
}

// Deps wires the user service collaborators.
type Deps struct {
	Repo     Repository
	Tx       txRunner
	Notifier notifier
	Outbox   outbox.Emitter
	Logger   *logger.Logger
}

type service struct {
	deps Deps
	now  func() time.Time
}

// NewService builds the user service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, errors.New("users: repository is required")
	case deps.Tx == nil:
		return nil, errors.New("users: transaction runner is required")
	case deps.Notifier == nil:
		return nil, errors.New("users: notifier is required")
	case deps.Outbox == nil:
		return nil, errors.New("users: outbox emitter is required")
	case deps.Logger == nil:
		return nil, errors.New("users: logger is required")
	}
	return &service{deps: deps, now: time.Now}, nil
}

func (s *service) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.deps.Repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load user")
	}
	return user, nil
}

func (s *service) Suspend(ctx context.Context, act actor.Actor, userID uuid.UUID, in SuspendInput) (*models.User, error) {
	if !act.IsPlatformAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "only platform actors suspend accounts")
	}
	if !in.Until.After(s.now()) {
		return nil, apperrors.New(apperrors.CodeValidation, "suspension end must be in the future")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "suspension reason is required")
	}

	err := s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.deps.Repo.WithTx(tx).Suspend(ctx, userID, in.Until, strings.TrimSpace(in.Reason))
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to suspend user")
		}
		if !ok {
			return apperrors.New(apperrors.CodeNotFound, "user not found")
		}
		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserSuspended,
			AggregateType: enums.AggregateUser,
			AggregateID:   userID,
			Actor:         &outbox.ActorRef{UserID: act.UserID, Role: act.Role},
			Version:       1,
			Data: map[string]any{
				"userId": userID.String(),
				"until":  in.Until.UTC().Format(time.RFC3339),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.deps.Notifier.Notify(ctx, userID, enums.NotificationKindAccount,
		"Account suspended",
		"Your account is suspended until "+in.Until.Format("2 Jan 2006")+": "+in.Reason); err != nil {
		s.deps.Logger.Error(ctx, "failed to notify suspension", err)
	}

	return s.GetByID(ctx, userID)
}

func (s *service) Reinstate(ctx context.Context, act actor.Actor, userID uuid.UUID) (*models.User, error) {
	if !act.IsPlatformAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "only platform actors reinstate accounts")
	}
	if err := s.deps.Repo.ClearSuspension(ctx, userID); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to reinstate user")
	}
	return s.GetByID(ctx, userID)
}

func (s *service) SetTaxRate(ctx context.Context, act actor.Actor, userID uuid.UUID, rate *decimal.Decimal) error {
	if !act.IsPlatformAdmin() {
		return apperrors.New(apperrors.CodeForbidden, "only platform actors set tax overrides")
	}
	if rate != nil && rate.IsNegative() {
		return apperrors.New(apperrors.CodeValidation, "tax rate cannot be negative")
	}
	if err := s.deps.Repo.SetTaxRate(ctx, userID, rate); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to set tax rate")
	}
	return nil
}

func (s *service) SetSubscription(ctx context.Context, act actor.Actor, userID uuid.UUID, fee *decimal.Decimal, planTier *string) error {
	if !act.IsPlatformAdmin() {
		return apperrors.New(apperrors.CodeForbidden, "only platform actors set subscription plans")
	}
	if fee != nil && fee.IsNegative() {
		return apperrors.New(apperrors.CodeValidation, "subscription fee cannot be negative")
	}
	if err := s.deps.Repo.SetSubscription(ctx, userID, fee, planTier); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to set subscription")
	}
	return nil
}

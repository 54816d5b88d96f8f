package disputes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
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

// orderReader reads the order a dispute targets.
type orderReader interface {
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind, title, message string) error
}

// OpenInput is a buyer's dispute submission.
type OpenInput struct {
	OrderID     uuid.UUID `json:"orderId" validate:"required"`
	Reason      string    `json:"reason" validate:"required,min=3,max=120"`
	Description string    `json:"description" validate:"max=2000"`
}

// Service is the dispute state machine: open → resolved → closed, with the
// resolution written exactly once.
type Service interface {
	Open(ctx context.Context, act actor.Actor, in OpenInput) (*models.Dispute, error)
	// Resolve sets the resolution text once. A replay after another actor
	// already resolved returns the stored dispute unchanged and sends no
	// second notification.
	Resolve(ctx context.Context, act actor.Actor, disputeID uuid.UUID, resolution string) (*models.Dispute, error)
	Close(ctx context.Context, act actor.Actor, disputeID uuid.UUID) (*models.Dispute, error)
	GetByID(ctx context.Context, act actor.Actor, disputeID uuid.UUID) (*models.Dispute, error)
	ListForBuyer(ctx context.Context, act actor.Actor) ([]models.Dispute, error)
	ListForBranch(ctx context.Context, act actor.Actor, branchID uuid.UUID) ([]models.Dispute, error)
}

// Deps wires the dispute service collaborators.
type Deps struct {
	Repo     Repository
	Tx       txRunner
	Orders   orderReader
	Notifier notifier
	Outbox   outbox.Emitter
	Logger   *logger.Logger
}

type service struct {
	deps Deps
	now  func() time.Time
}

// NewService builds the dispute service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, errors.New("disputes: repository is required")
	case deps.Tx == nil:
		return nil, errors.New("disputes: transaction runner is required")
	case deps.Orders == nil:
		return nil, errors.New("disputes: order reader is required")
	case deps.Notifier == nil:
		return nil, errors.New("disputes: notifier is required")
	case deps.Outbox == nil:
		return nil, errors.New("disputes: outbox emitter is required")
	case deps.Logger == nil:
		return nil, errors.New("disputes: logger is required")
	}
	return &service{deps: deps, now: time.Now}, nil
}

func (s *service) Open(ctx context.Context, act actor.Actor, in OpenInput) (*models.Dispute, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "dispute reason is required")
	}

	order, err := s.deps.Orders.FindByID(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load order")
	}
	if order.BuyerID != act.UserID {
		return nil, apperrors.New(apperrors.CodeForbidden, "only the order's buyer may open a dispute")
	}
	if order.Status == enums.OrderStatusPending {
		return nil, apperrors.New(apperrors.CodeStateConflict, "disputes require a completed or cancelled order")
	}

	if existing, err := s.deps.Repo.FindOpenByOrder(ctx, in.OrderID); err == nil && existing != nil {
		return nil, apperrors.New(apperrors.CodeConflict, "an open dispute already exists for this order")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to check existing disputes")
	}

	dispute := &models.Dispute{
		ID:          uuid.New(),
		OrderID:     order.ID,
		BuyerID:     act.UserID,
		BranchID:    order.BranchID,
		Reason:      strings.TrimSpace(in.Reason),
		Description: strings.TrimSpace(in.Description),
		Status:      enums.DisputeStatusOpen,
	}
	err = s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.deps.Repo.WithTx(tx).Create(ctx, dispute); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to create dispute")
		}
		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeOpened,
			AggregateType: enums.AggregateDispute,
			AggregateID:   dispute.ID,
			Actor:         &outbox.ActorRef{UserID: act.UserID, Role: act.Role},
			Version:       1,
			Data: map[string]any{
				"disputeId": dispute.ID.String(),
				"orderId":   order.ID.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

func (s *service) Resolve(ctx context.Context, act actor.Actor, disputeID uuid.UUID, resolution string) (*models.Dispute, error) {
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "resolution text is required")
	}

	dispute, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !act.CanManageBranch(dispute.BranchID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to resolve this dispute")
	}
	if dispute.Status == enums.DisputeStatusClosed {
		return nil, apperrors.New(apperrors.CodeStateConflict, "dispute is closed")
	}

	var won bool
	err = s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.deps.Repo.WithTx(tx)
		won, err = repo.Resolve(ctx, disputeID, act.UserID, resolution, s.now())
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to resolve dispute")
		}
		if !won {
			return nil
		}
		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeResolved,
			AggregateType: enums.AggregateDispute,
			AggregateID:   disputeID,
			Actor:         &outbox.ActorRef{UserID: act.UserID, BranchID: act.BranchID, Role: act.Role},
			Version:       1,
			Data: map[string]any{
				"disputeId":  disputeID.String(),
				"resolution": resolution,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if won {
		// Only the winning resolver notifies, so a replay cannot produce a
		// duplicate notification.
		if err := s.deps.Notifier.Notify(ctx, dispute.BuyerID, enums.NotificationKindDispute,
			"Dispute resolved", "Your dispute has been resolved: "+resolution); err != nil {
			s.deps.Logger.Error(ctx, "failed to notify dispute resolution", err)
		}
	}

	return s.getDispute(ctx, disputeID)
}

func (s *service) Close(ctx context.Context, act actor.Actor, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !act.CanManageBranch(dispute.BranchID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to close this dispute")
	}

	err = s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.deps.Repo.WithTx(tx).Close(ctx, disputeID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to close dispute")
		}
		if !ok {
			return apperrors.New(apperrors.CodeStateConflict, "only resolved disputes can be closed")
		}
		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeClosed,
			AggregateType: enums.AggregateDispute,
			AggregateID:   disputeID,
			Actor:         &outbox.ActorRef{UserID: act.UserID, BranchID: act.BranchID, Role: act.Role},
			Version:       1,
			Data:          map[string]any{"disputeId": disputeID.String()},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.getDispute(ctx, disputeID)
}

func (s *service) GetByID(ctx context.Context, act actor.Actor, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.BuyerID != act.UserID && !act.CanManageBranch(dispute.BranchID) {
		return nil, apperrors.New(apperrors.CodeNotFound, "dispute not found")
	}
	return dispute, nil
}

func (s *service) ListForBuyer(ctx context.Context, act actor.Actor) ([]models.Dispute, error) {
	disputes, err := s.deps.Repo.ListByBuyer(ctx, act.UserID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list disputes")
	}
	return disputes, nil
}

func (s *service) ListForBranch(ctx context.Context, act actor.Actor, branchID uuid.UUID) ([]models.Dispute, error) {
	if !act.CanManageBranch(branchID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to view this branch's disputes")
	}
	disputes, err := s.deps.Repo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list branch disputes")
	}
	return disputes, nil
}

func (s *service) getDispute(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.deps.Repo.FindByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "dispute not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load dispute")
	}
	return dispute, nil
}

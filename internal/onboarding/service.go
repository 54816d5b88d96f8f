package onboarding

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

// branchIDNamespace seeds the deterministic branch id. Changing it would
// detach every approved branch from its owner, so it is frozen.
var branchIDNamespace = uuid.MustParse("8f3c6f6e-5b2a-4a8c-9d71-2f04c1b2a9e3")

// BranchIDFor derives the branch id every approval of this user converges on.
func BranchIDFor(userID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(branchIDNamespace, userID[:])
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userStore interface {
	FindByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	PromoteToBranchAdmin(ctx context.Context, userID, branchID uuid.UUID, country, category string) (bool, error)
}

type branchStore interface {
	Upsert(ctx context.Context, branch *models.Branch) error
}

type countryRegistry interface {
	Supports(code string) bool
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind, title, message string) error
}

// SubmitInput is a seller application for a storefront.
type SubmitInput struct {
	ShopName    string `json:"shopName" validate:"required,min=2,max=120"`
	Category    string `json:"category" validate:"max=120"`
	Country     string `json:"country" validate:"required"`
	Description string `json:"description" validate:"max=2000"`
	ProofURL    string `json:"proofUrl" validate:"required,url"`
}

// Service is the branch onboarding workflow: submit, reject, and the
// two-step idempotent approval.
type Service interface {
	Submit(ctx context.Context, act actor.Actor, in SubmitInput) (*models.BranchRequest, error)
	Reject(ctx context.Context, act actor.Actor, requestID uuid.UUID) (*models.BranchRequest, error)
	// Approve promotes the applicant and creates the branch. Both steps key
	// on the deterministic branch id, so running the whole approval again
	// after a crash between the steps converges on the same state.
	Approve(ctx context.Context, act actor.Actor, requestID uuid.UUID) (*models.BranchRequest, error)
	GetByID(ctx context.Context, act actor.Actor, requestID uuid.UUID) (*models.BranchRequest, error)
	ListPending(ctx context.Context, act actor.Actor) ([]models.BranchRequest, error)
}

// Deps wires the onboarding service collaborators.
type Deps struct {
	Repo      Repository
	Tx        txRunner
	Users     userStore
	Branches  branchStore
	Countries countryRegistry
	Notifier  notifier
	Outbox    outbox.Emitter
	Logger    *logger.Logger
}

type service struct {
	deps Deps
	now  func() time.Time
}

// NewService builds the onboarding service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, errors.New("onboarding: repository is required")
	case deps.Tx == nil:
		return nil, errors.New("onboarding: transaction runner is required")
	case deps.Users == nil:
		return nil, errors.New("onboarding: user store is required")
	case deps.Branches == nil:
		return nil, errors.New("onboarding: branch store is required")
	case deps.Countries == nil:
		return nil, errors.New("onboarding: country registry is required")
	case deps.Notifier == nil:
		return nil, errors.New("onboarding: notifier is required")
	case deps.Outbox == nil:
		return nil, errors.New("onboarding: outbox emitter is required")
	case deps.Logger == nil:
		return nil, errors.New("onboarding: logger is required")
	}
	return &service{deps: deps, now: time.Now}, nil
}

func (s *service) Submit(ctx context.Context, act actor.Actor, in SubmitInput) (*models.BranchRequest, error) {
	if act.IsZero() {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "applications require an authenticated user")
	}
	if strings.TrimSpace(in.ShopName) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "shop name is required")
	}
	if strings.TrimSpace(in.ProofURL) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "payment proof is required")
	}
	if !s.deps.Countries.Supports(in.Country) {
		return nil, apperrors.New(apperrors.CodeValidation, "country is not supported")
	}

	user, err := s.deps.Users.FindByID(ctx, act.UserID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load applicant")
	}
	if user.Role == enums.RoleBranchAdmin {
		return nil, apperrors.New(apperrors.CodeConflict, "account already owns a branch")
	}

	if existing, err := s.deps.Repo.FindPendingByUser(ctx, act.UserID); err == nil && existing != nil {
		return nil, apperrors.New(apperrors.CodeConflict, "an application is already under review")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to check existing applications")
	}

	request := &models.BranchRequest{
		ID:          uuid.New(),
		UserID:      act.UserID,
		ShopName:    strings.TrimSpace(in.ShopName),
		Category:    strings.TrimSpace(in.Category),
		Country:     strings.ToUpper(strings.TrimSpace(in.Country)),
		Description: strings.TrimSpace(in.Description),
		ProofURL:    strings.TrimSpace(in.ProofURL),
		Status:      enums.BranchRequestStatusPending,
	}
	if err := s.deps.Repo.Create(ctx, request); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to submit application")
	}
	return request, nil
}

func (s *service) Reject(ctx context.Context, act actor.Actor, requestID uuid.UUID) (*models.BranchRequest, error) {
	if !act.IsPlatformAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "only platform actors review applications")
	}

	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	err = s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.deps.Repo.WithTx(tx).MarkDecided(ctx, requestID, act.UserID, enums.BranchRequestStatusRejected, s.now())
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to reject application")
		}
		if !ok {
			return apperrors.New(apperrors.CodeStateConflict, "application has already been decided")
		}
		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBranchRequestRejected,
			AggregateType: enums.AggregateBranch,
			AggregateID:   requestID,
			Actor:         &outbox.ActorRef{UserID: act.UserID, Role: act.Role},
			Version:       1,
			Data:          map[string]any{"requestId": requestID.String()},
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.deps.Notifier.Notify(ctx, request.UserID, enums.NotificationKindOnboarding,
		"Application rejected",
		"Your application for "+request.ShopName+" was not approved."); err != nil {
		s.deps.Logger.Error(ctx, "failed to notify rejection", err)
	}

	return s.getRequest(ctx, requestID)
}

func (s *service) Approve(ctx context.Context, act actor.Actor, requestID uuid.UUID) (*models.BranchRequest, error) {
	if !act.IsPlatformAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "only platform actors review applications")
	}

	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status == enums.BranchRequestStatusRejected {
		return nil, apperrors.New(apperrors.CodeStateConflict, "application has already been rejected")
	}

	branchID := BranchIDFor(request.UserID)

	// Step one: promote the applicant and stamp the approved shop country
	// and category onto the profile. A zero-row update means the promotion
	// already applied on a previous run.
	if _, err := s.deps.Users.PromoteToBranchAdmin(ctx, request.UserID, branchID, request.Country, request.Category); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to promote applicant")
	}

	// Step two: create the branch at its deterministic id, finalize the
	// request and queue the event at most once.
	err = s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		branch := &models.Branch{
			ID:          branchID,
			OwnerID:     request.UserID,
			Name:        request.ShopName,
			Category:    request.Category,
			Country:     request.Country,
			Description: request.Description,
			Status:      enums.BranchStatusActive,
		}
		if err := s.deps.Branches.Upsert(ctx, branch); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to create branch")
		}
		if _, err := s.deps.Repo.WithTx(tx).MarkDecided(ctx, requestID, act.UserID, enums.BranchRequestStatusApproved, s.now()); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to finalize application")
		}
		return s.deps.Outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBranchApproved,
			AggregateType: enums.AggregateBranch,
			AggregateID:   branchID,
			Actor:         &outbox.ActorRef{UserID: act.UserID, Role: act.Role},
			Version:       1,
			Data: map[string]any{
				"branchId": branchID.String(),
				"userId":   request.UserID.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if request.Status == enums.BranchRequestStatusPending {
		if err := s.deps.Notifier.Notify(ctx, request.UserID, enums.NotificationKindOnboarding,
			"Application approved",
			request.ShopName+" is now live on the marketplace."); err != nil {
			s.deps.Logger.Error(ctx, "failed to notify approval", err)
		}
	}

	return s.getRequest(ctx, requestID)
}

func (s *service) GetByID(ctx context.Context, act actor.Actor, requestID uuid.UUID) (*models.BranchRequest, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.UserID != act.UserID && !act.IsPlatformAdmin() {
		return nil, apperrors.New(apperrors.CodeNotFound, "application not found")
	}
	return request, nil
}

func (s *service) ListPending(ctx context.Context, act actor.Actor) ([]models.BranchRequest, error) {
	if !act.IsPlatformAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "only platform actors review applications")
	}
	requests, err := s.deps.Repo.ListByStatus(ctx, enums.BranchRequestStatusPending)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list applications")
	}
	return requests, nil
}

func (s *service) getRequest(ctx context.Context, requestID uuid.UUID) (*models.BranchRequest, error) {
	request, err := s.deps.Repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "application not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load application")
	}
	return request, nil
}

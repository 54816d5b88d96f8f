package branches

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	apperrors "github.com/souqline/souqline-backend/pkg/errors"
)

// Service exposes branch aggregate reads and platform status controls.
type Service interface {
	GetByID(ctx context.Context, branchID uuid.UUID) (*models.Branch, error)
	List(ctx context.Context, status *enums.BranchStatus) ([]models.Branch, error)
	// SetStatus suspends or reactivates a storefront. Platform only.
	SetStatus(ctx context.Context, act actor.Actor, branchID uuid.UUID, status enums.BranchStatus) (*models.Branch, error)
}

type service struct {
	repo Repository
}

// NewService builds the branch service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("branches: repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetByID(ctx context.Context, branchID uuid.UUID) (*models.Branch, error) {
	branch, err := s.repo.FindByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "branch not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load branch")
	}
	return branch, nil
}

func (s *service) List(ctx context.Context, status *enums.BranchStatus) ([]models.Branch, error) {
	branches, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list branches")
	}
	return branches, nil
}

func (s *service) SetStatus(ctx context.Context, act actor.Actor, branchID uuid.UUID, status enums.BranchStatus) (*models.Branch, error) {
	if !act.IsPlatformAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "only platform actors change branch status")
	}
	if !status.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown branch status")
	}
	if _, err := s.repo.UpdateStatus(ctx, branchID, status); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to update branch status")
	}
	return s.GetByID(ctx, branchID)
}

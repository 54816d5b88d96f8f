package onboarding

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
)

// Repository manages persistence for branch applications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.BranchRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.BranchRequest, error)
	FindPendingByUser(ctx context.Context, userID uuid.UUID) (*models.BranchRequest, error)
	ListByStatus(ctx context.Context, status enums.BranchRequestStatus) ([]models.BranchRequest, error)
	// MarkDecided moves a request out of pending. Replays affect zero rows.
	MarkDecided(ctx context.Context, requestID, decidedBy uuid.UUID, status enums.BranchRequestStatus, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an onboarding repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.BranchRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BranchRequest, error) {
	var request models.BranchRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindPendingByUser(ctx context.Context, userID uuid.UUID) (*models.BranchRequest, error) {
	var request models.BranchRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.BranchRequestStatusPending).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.BranchRequestStatus) ([]models.BranchRequest, error) {
	var requests []models.BranchRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) MarkDecided(ctx context.Context, requestID, decidedBy uuid.UUID, status enums.BranchRequestStatus, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BranchRequest{}).
		Where("id = ? AND status = ?", requestID, enums.BranchRequestStatusPending).
		Updates(map[string]any{
			"status":     status,
			"decided_by": decidedBy,
			"decided_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

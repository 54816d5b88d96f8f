package branches

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
)

// Repository manages persistence for branch aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Upsert inserts the branch at its deterministic id and does nothing
	// when the row already exists, so approval replays cannot collide.
	Upsert(ctx context.Context, branch *models.Branch) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Branch, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Branch, error)
	List(ctx context.Context, status *enums.BranchStatus) ([]models.Branch, error)
	UpdateStatus(ctx context.Context, branchID uuid.UUID, status enums.BranchStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a branch repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Upsert(ctx context.Context, branch *models.Branch) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(branch).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	var branch models.Branch
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&branch).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Branch, error) {
	var branch models.Branch
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&branch).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *repository) List(ctx context.Context, status *enums.BranchStatus) ([]models.Branch, error) {
	query := r.db.WithContext(ctx)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var branches []models.Branch
	if err := query.Order("created_at DESC").Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}

func (r *repository) UpdateStatus(ctx context.Context, branchID uuid.UUID, status enums.BranchStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Branch{}).
		Where("id = ? AND status <> ?", branchID, status).
		Update("status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

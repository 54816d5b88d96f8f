package disputes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
)

// Repository manages persistence for disputes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dispute *models.Dispute) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	FindOpenByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Dispute, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.Dispute, error)
	// Resolve fills the resolution fields only while the dispute is still
	// open, so exactly one resolver ever wins.
	Resolve(ctx context.Context, disputeID, resolvedBy uuid.UUID, resolution string, at time.Time) (bool, error)
	// Close moves a resolved dispute to its final status.
	Close(ctx context.Context, disputeID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a dispute repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dispute).Error; err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) FindOpenByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.DisputeStatusOpen).
		First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&disputes).Error
	if err != nil {
		return nil, err
	}
	return disputes, nil
}

func (r *repository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("created_at DESC").
		Find(&disputes).Error
	if err != nil {
		return nil, err
	}
	return disputes, nil
}

func (r *repository) Resolve(ctx context.Context, disputeID, resolvedBy uuid.UUID, resolution string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ? AND status = ?", disputeID, enums.DisputeStatusOpen).
		Updates(map[string]any{
			"status":      enums.DisputeStatusResolved,
			"resolution":  resolution,
			"resolved_by": resolvedBy,
			"resolved_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) Close(ctx context.Context, disputeID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ? AND status = ?", disputeID, enums.DisputeStatusResolved).
		Update("status", enums.DisputeStatusClosed)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

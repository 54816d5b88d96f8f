package coupons

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db/models"
)

// Repository manages persistence for coupons.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, coupon *models.Coupon) error
	Update(ctx context.Context, coupon *models.Coupon) error
	Delete(ctx context.Context, branchID, couponID uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindActiveByCode(ctx context.Context, branchID uuid.UUID, code string) (*models.Coupon, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.Coupon, error)
	IncrementUsage(ctx context.Context, couponID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a coupon repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *repository) Update(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Save(coupon).Error
}

func (r *repository) Delete(ctx context.Context, branchID, couponID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND branch_id = ?", couponID, branchID).
		Delete(&models.Coupon{})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindActiveByCode(ctx context.Context, branchID uuid.UUID, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND code = ? AND is_active = ?", branchID, code, true).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := r.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("created_at DESC").
		Find(&coupons).Error
	if err != nil {
		return nil, err
	}
	return coupons, nil
}

// IncrementUsage bumps usage_count in one conditional statement so the
// counter can never pass usage_limit, even under concurrent redemption.
func (r *repository) IncrementUsage(ctx context.Context, couponID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND is_active = ? AND (usage_limit = 0 OR usage_count < usage_limit)", couponID, true).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
)

// Repository manages persistence for user profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// PromoteToBranchAdmin attaches the branch, raises the role and copies
	// the approved shop country and category onto the profile. Running it
	// again after it has applied affects zero rows and is not an error.
	PromoteToBranchAdmin(ctx context.Context, userID, branchID uuid.UUID, country, category string) (bool, error)
	Suspend(ctx context.Context, userID uuid.UUID, until time.Time, reason string) (bool, error)
	ClearSuspension(ctx context.Context, userID uuid.UUID) error
	SetTaxRate(ctx context.Context, userID uuid.UUID, rate *decimal.Decimal) error
	SetSubscription(ctx context.Context, userID uuid.UUID, fee *decimal.Decimal, planTier *string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a user repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) PromoteToBranchAdmin(ctx context.Context, userID, branchID uuid.UUID, country, category string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND (role <> ? OR branch_id IS NULL)", userID, enums.RoleBranchAdmin).
		Updates(map[string]any{
			"role":      enums.RoleBranchAdmin,
			"branch_id": branchID,
			"country":   country,
			"category":  category,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) Suspend(ctx context.Context, userID uuid.UUID, until time.Time, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"suspended_until":   until,
			"suspension_reason": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ClearSuspension(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"suspended_until":   nil,
			"suspension_reason": nil,
		}).Error
}

func (r *repository) SetTaxRate(ctx context.Context, userID uuid.UUID, rate *decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("tax_rate", rate).Error
}

func (r *repository) SetSubscription(ctx context.Context, userID uuid.UUID, fee *decimal.Decimal, planTier *string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"monthly_subscription_fee": fee,
			"plan_tier":                planTier,
		}).Error
}

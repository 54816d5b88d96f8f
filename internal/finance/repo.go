package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
)

// Repository manages persistence for settlement payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.FinancePayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.FinancePayment, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.FinancePayment, error)
	ListPending(ctx context.Context) ([]models.FinancePayment, error)
	// Decide flips a pending payment to a terminal status; a second decision
	// affects zero rows.
	Decide(ctx context.Context, paymentID, decidedBy uuid.UUID, status enums.FinancePaymentStatus, message *string, at time.Time) (bool, error)
	// SumApproved totals the approved payments of one type for a branch.
	SumApproved(ctx context.Context, branchID uuid.UUID, paymentType enums.FinancePaymentType) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a finance repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.FinancePayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.FinancePayment, error) {
	var payment models.FinancePayment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.FinancePayment, error) {
	var payments []models.FinancePayment
	err := r.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) ListPending(ctx context.Context) ([]models.FinancePayment, error) {
	var payments []models.FinancePayment
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.FinancePaymentStatusPending).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) Decide(ctx context.Context, paymentID, decidedBy uuid.UUID, status enums.FinancePaymentStatus, message *string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.FinancePayment{}).
		Where("id = ? AND status = ?", paymentID, enums.FinancePaymentStatusPending).
		Updates(map[string]any{
			"status":     status,
			"message":    message,
			"decided_by": decidedBy,
			"decided_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) SumApproved(ctx context.Context, branchID uuid.UUID, paymentType enums.FinancePaymentType) (decimal.Decimal, error) {
	var raw *string
	err := r.db.WithContext(ctx).
		Model(&models.FinancePayment{}).
		Select("CAST(SUM(amount) AS TEXT)").
		Where("branch_id = ? AND type = ? AND status = ?",
			branchID, paymentType, enums.FinancePaymentStatusApproved).
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil || *raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*raw)
}

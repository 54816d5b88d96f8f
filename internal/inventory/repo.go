package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db/models"
)

// Repository owns stock mutation and the append-only inventory log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error)

	// DecrementProductStock subtracts quantity only if enough stock remains.
	DecrementProductStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error)
	// DecrementVariantStock subtracts quantity from a variant only if enough
	// stock remains.
	DecrementVariantStock(ctx context.Context, variantID uuid.UUID, quantity int) (bool, error)
	IncrementProductStock(ctx context.Context, productID uuid.UUID, quantity int) error
	IncrementVariantStock(ctx context.Context, variantID uuid.UUID, quantity int) error
	// SyncProductStock recomputes a product's stock as the sum of its
	// variants' stocks.
	SyncProductStock(ctx context.Context, productID uuid.UUID) error

	AppendLog(ctx context.Context, entry *models.InventoryLog) error
	ListLogs(ctx context.Context, branchID uuid.UUID, productID *uuid.UUID, limit int) ([]models.InventoryLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).Where("id = ?", variantID).First(&variant).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) DecrementProductStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) DecrementVariantStock(ctx context.Context, variantID uuid.UUID, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ? AND stock >= ?", variantID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) IncrementProductStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity)).Error
}

func (r *repository) IncrementVariantStock(ctx context.Context, variantID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity)).Error
}

func (r *repository) SyncProductStock(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr(
			"(SELECT COALESCE(SUM(stock), 0) FROM product_variants WHERE product_id = ?)", productID,
		)).Error
}

func (r *repository) AppendLog(ctx context.Context, entry *models.InventoryLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListLogs(ctx context.Context, branchID uuid.UUID, productID *uuid.UUID, limit int) ([]models.InventoryLog, error) {
	query := r.db.WithContext(ctx).Where("branch_id = ?", branchID)
	if productID != nil {
		query = query.Where("product_id = ?", *productID)
	}
	var logs []models.InventoryLog
	err := query.Order("created_at DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

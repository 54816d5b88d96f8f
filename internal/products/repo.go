package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/internal/taxes"
	"github.com/souqline/souqline-backend/pkg/db/models"
)

// Repository manages persistence for the branch catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, branchID, productID uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID, activeOnly bool) ([]models.Product, error)
	// ReplaceVariants swaps a product's variant list and restates the
	// product stock as the sum of the new variants' stocks.
	ReplaceVariants(ctx context.Context, productID uuid.UUID, variants []models.ProductVariant) error
	// CategoryRates resolves tax rates for the named categories. Unknown
	// names are simply absent from the result.
	CategoryRates(ctx context.Context, names []string) (taxes.CategoryRates, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a product repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Variants").Save(product).Error
}

func (r *repository) Delete(ctx context.Context, branchID, productID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND branch_id = ?", productID, branchID).
		Delete(&models.Product{})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListByBranch(ctx context.Context, branchID uuid.UUID, activeOnly bool) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Preload("Variants").Where("branch_id = ?", branchID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var products []models.Product
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ReplaceVariants(ctx context.Context, productID uuid.UUID, variants []models.ProductVariant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&models.ProductVariant{}).Error; err != nil {
			return err
		}
		total := 0
		for i := range variants {
			variants[i].ProductID = productID
			total += variants[i].Stock
		}
		if len(variants) > 0 {
			if err := tx.Create(&variants).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Product{}).
			Where("id = ?", productID).
			UpdateColumn("stock", total).Error
	})
}

func (r *repository) CategoryRates(ctx context.Context, names []string) (taxes.CategoryRates, error) {
	if len(names) == 0 {
		return taxes.CategoryRates{}, nil
	}
	var categories []models.Category
	err := r.db.WithContext(ctx).
		Where("name IN ?", names).
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	rates := make(taxes.CategoryRates, len(categories))
	for _, category := range categories {
		rates[category.Name] = category.TaxRate
	}
	return rates, nil
}

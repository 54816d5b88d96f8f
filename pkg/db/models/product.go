package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a branch catalog listing. When variants exist, Stock is defined
// as the sum of variant stocks and every variant writer keeps it in sync.
type Product struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BranchID  uuid.UUID        `gorm:"column:branch_id;type:uuid;not null;index"`
	Name      string           `gorm:"column:name;not null"`
	Category  string           `gorm:"column:category;not null;default:''"`
	Price     decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	Stock     int              `gorm:"column:stock;not null;default:0"`
	IsActive  bool             `gorm:"column:is_active;not null;default:true"`
	Variants  []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductVariant is a priced, stocked sub-unit of a product.
type ProductVariant struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Color     string          `gorm:"column:color;not null;default:''"`
	Size      string          `gorm:"column:size;not null;default:''"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock     int             `gorm:"column:stock;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Category carries the fallback tax rate used when a branch has no override.
type Category struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string          `gorm:"column:name;not null;uniqueIndex"`
	TaxRate   decimal.Decimal `gorm:"column:tax_rate;type:numeric(6,3);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

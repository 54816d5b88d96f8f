package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// InventoryLog is the immutable audit row appended after every stock change.
// Rows are never updated or deleted.
type InventoryLog struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID      uuid.UUID      `gorm:"column:product_id;type:uuid;not null;index"`
	VariantID      *uuid.UUID     `gorm:"column:variant_id;type:uuid"`
	BranchID       uuid.UUID      `gorm:"column:branch_id;type:uuid;not null;index"`
	Delta          int            `gorm:"column:delta;not null"`
	ResultingStock int            `gorm:"column:resulting_stock;not null"`
	Reason         string         `gorm:"column:reason;not null"`
	ActorID        uuid.UUID      `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole      enums.UserRole `gorm:"column:actor_role;type:text;not null"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// Dispute is a buyer-raised issue tied to a placed order. Resolution fields
// are set exactly once by a conditional update.
type Dispute struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	BuyerID     uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	BranchID    uuid.UUID           `gorm:"column:branch_id;type:uuid;not null;index"`
	Reason      string              `gorm:"column:reason;not null"`
	Description string              `gorm:"column:description;not null;default:''"`
	Status      enums.DisputeStatus `gorm:"column:status;type:text;not null;default:'open'"`
	Resolution  *string             `gorm:"column:resolution"`
	ResolvedBy  *uuid.UUID          `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt  *time.Time          `gorm:"column:resolved_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// Branch is a seller storefront aggregate. Its id is a pure function of the
// owner's user id, so approval retries upsert instead of colliding.
type Branch struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID     uuid.UUID          `gorm:"column:owner_id;type:uuid;not null;uniqueIndex"`
	Name        string             `gorm:"column:name;not null"`
	Category    string             `gorm:"column:category;not null;default:''"`
	Country     string             `gorm:"column:country;not null"`
	Description string             `gorm:"column:description;not null;default:''"`
	Status      enums.BranchStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Rating      decimal.Decimal    `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	ReviewCount int                `gorm:"column:review_count;not null;default:0"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// BranchRequest is a seller application awaiting platform review.
type BranchRequest struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID                 `gorm:"column:user_id;type:uuid;not null;index"`
	ShopName    string                    `gorm:"column:shop_name;not null"`
	Category    string                    `gorm:"column:category;not null;default:''"`
	Country     string                    `gorm:"column:country;not null"`
	Description string                    `gorm:"column:description;not null;default:''"`
	ProofURL    string                    `gorm:"column:proof_url;not null"`
	Status      enums.BranchRequestStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	DecidedBy   *uuid.UUID                `gorm:"column:decided_by;type:uuid"`
	DecidedAt   *time.Time                `gorm:"column:decided_at"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// Coupon is a branch-scoped discount code. UsageLimit of zero means unlimited;
// when set, UsageCount never exceeds it (enforced by a conditional increment).
type Coupon struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BranchID       uuid.UUID          `gorm:"column:branch_id;type:uuid;not null;uniqueIndex:ux_coupons_branch_code"`
	Code           string             `gorm:"column:code;not null;uniqueIndex:ux_coupons_branch_code"`
	DiscountType   enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	Value          decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	MinOrderAmount decimal.Decimal    `gorm:"column:min_order_amount;type:numeric(12,2);not null;default:0"`
	ExpiryDate     time.Time          `gorm:"column:expiry_date;not null"`
	IsActive       bool               `gorm:"column:is_active;not null;default:true"`
	UsageCount     int                `gorm:"column:usage_count;not null;default:0"`
	UsageLimit     int                `gorm:"column:usage_limit;not null;default:0"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

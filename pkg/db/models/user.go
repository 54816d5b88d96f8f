package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// User holds the buyer/seller profile. Branch admins carry the branch they
// were promoted into; platform actors carry no branch.
type User struct {
	ID                     uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email                  string           `gorm:"column:email;not null;uniqueIndex"`
	FullName               string           `gorm:"column:full_name;not null"`
	Role                   enums.UserRole   `gorm:"column:role;type:text;not null;default:'user'"`
	BranchID               *uuid.UUID       `gorm:"column:branch_id;type:uuid"`
	Country                string           `gorm:"column:country;not null;default:''"`
	Category               *string          `gorm:"column:category"`
	TaxRate                *decimal.Decimal `gorm:"column:tax_rate;type:numeric(6,3)"`
	MonthlySubscriptionFee *decimal.Decimal `gorm:"column:monthly_subscription_fee;type:numeric(12,2)"`
	PlanTier               *string          `gorm:"column:plan_tier"`
	SuspendedUntil         *time.Time       `gorm:"column:suspended_until"`
	SuspensionReason       *string          `gorm:"column:suspension_reason"`
	CreatedAt              time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// IsSuspended reports whether the user sits inside an active suspension window.
func (u *User) IsSuspended(now time.Time) bool {
	return u.SuspendedUntil != nil && now.Before(*u.SuspendedUntil)
}

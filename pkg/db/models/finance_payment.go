package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// FinancePayment is a branch's self-reported settlement of accrued tax or
// subscription dues, pending until a platform actor decides it.
type FinancePayment struct {
	ID             uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BranchID       uuid.UUID                  `gorm:"column:branch_id;type:uuid;not null;index"`
	Amount         decimal.Decimal            `gorm:"column:amount;type:numeric(12,2);not null"`
	TransactionRef string                     `gorm:"column:transaction_ref;not null"`
	Type           enums.FinancePaymentType   `gorm:"column:type;type:text;not null"`
	Status         enums.FinancePaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Message        *string                    `gorm:"column:message"`
	Period         *string                    `gorm:"column:period"`
	ProofURL       *string                    `gorm:"column:proof_url"`
	DecidedBy      *uuid.UUID                 `gorm:"column:decided_by;type:uuid"`
	DecidedAt      *time.Time                 `gorm:"column:decided_at"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

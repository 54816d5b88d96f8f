package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// ShippingInfo is the delivery snapshot captured at checkout.
type ShippingInfo struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Notes    string `json:"notes,omitempty"`
}

// Order is the durable record produced from a checkout request. Status moves
// only pending→completed or pending→cancelled; history rows are append-only.
// HiddenAt implements buyer-initiated history removal without touching the
// ledgers or accrual queries that already reference the order.
type Order struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID        uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null;index"`
	BranchID       uuid.UUID          `gorm:"column:branch_id;type:uuid;not null;index"`
	Status         enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalAmount    decimal.Decimal    `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ShippingCost   decimal.Decimal    `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	TaxAmount      decimal.Decimal    `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	TaxRate        decimal.Decimal    `gorm:"column:tax_rate;type:numeric(6,3);not null;default:0"`
	DiscountAmount decimal.Decimal    `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	FinalAmount    decimal.Decimal    `gorm:"column:final_amount;type:numeric(12,2);not null"`
	CouponCode     *string            `gorm:"column:coupon_code"`
	PaymentMethod  *string            `gorm:"column:payment_method"`
	PaymentRef     *string            `gorm:"column:payment_ref"`
	ShippingInfo   *ShippingInfo      `gorm:"column:shipping_info;type:jsonb;serializer:json"`
	HiddenAt       *time.Time         `gorm:"column:hidden_at"`
	Items          []OrderLineItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory  []OrderStatusEvent `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLineItem snapshots name and unit price at checkout time so later
// catalog edits never rewrite order history.
type OrderLineItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Name      string          `gorm:"column:name;not null"`
	Category  string          `gorm:"column:category;not null;default:''"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderStatusEvent is one append-only row of an order's status history.
type OrderStatusEvent struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	ActorID   uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole enums.UserRole    `gorm:"column:actor_role;type:text;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

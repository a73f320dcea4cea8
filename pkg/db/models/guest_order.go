package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	"github.com/kashvicreations/kashvi-backend/pkg/types"
)

// GuestOrder is the parallel order record for unauthenticated buyers. It is
// converted at most once into a standard Order via its single-use token.
type GuestOrder struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GuestInfo     types.GuestInfo     `gorm:"column:guest_info;type:jsonb;serializer:json"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'PENDING'"`
	CouponID      *uuid.UUID          `gorm:"column:coupon_id;type:uuid"`

	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	GSTAmount   decimal.Decimal `gorm:"column:gst_amount;type:numeric(12,2);not null"`
	Discount    decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	FinalAmount decimal.Decimal `gorm:"column:final_amount;type:numeric(12,2);not null"`

	ConversionToken string     `gorm:"column:conversion_token;uniqueIndex;not null"`
	TokenExpiresAt  time.Time  `gorm:"column:token_expires_at;not null"`
	ConvertedToUser *uuid.UUID `gorm:"column:converted_to_user;type:uuid"`
	ConvertedOrder  *uuid.UUID `gorm:"column:converted_order_id;type:uuid"`

	Items     []GuestOrderItem `gorm:"foreignKey:GuestOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// GuestOrderItem mirrors the standard line-item shape with its price resolved
// once at guest checkout.
type GuestOrderItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GuestOrderID uuid.UUID       `gorm:"column:guest_order_id;type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID    *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Name         string          `gorm:"column:name;not null"`
	Qty          int             `gorm:"column:qty;not null"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Total        decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	"github.com/kashvicreations/kashvi-backend/pkg/types"
)

// Order is the durable record produced from a checkout submission. Line item
// price snapshots are immutable once written; catalog price changes never
// propagate back into an existing order.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	PaymentMode     enums.PaymentMode   `gorm:"column:payment_mode;type:text;not null;default:'ONLINE'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'PENDING'"`
	OrderStatus     enums.OrderStatus   `gorm:"column:order_status;type:text;not null;default:'PLACED'"`
	ShippingAddress types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	CouponID        *uuid.UUID          `gorm:"column:coupon_id;type:uuid"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`

	// Gateway correlation ids, populated by whichever adapter handled payment.
	RazorpayOrderID    *string `gorm:"column:razorpay_order_id"`
	StripePaymentID    *string `gorm:"column:stripe_payment_id"`
	CCAvenueTrackingID *string `gorm:"column:ccavenue_tracking_id"`
	TransactionID      *string `gorm:"column:transaction_id"`

	Items     []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

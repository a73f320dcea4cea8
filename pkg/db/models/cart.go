package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart holds a user's open cart. The core only ever clears it on payment
// completion; cart management itself lives outside this service.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem is one product entry in a cart.
type CartItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID  `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	Qty       int        `gorm:"column:qty;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

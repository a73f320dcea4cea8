package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the narrow catalog view the core consumes for price lookups.
// Catalog CRUD is managed elsewhere; dynamically priced products carry the
// inputs the pricing engine needs.
type Product struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string          `gorm:"column:name;not null"`
	SKU            string          `gorm:"column:sku;uniqueIndex;not null"`
	SalePrice      decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2);not null"`
	DynamicPricing bool            `gorm:"column:dynamic_pricing;not null;default:false"`
	WeightGrams    decimal.Decimal `gorm:"column:weight_grams;type:numeric(10,3);not null;default:0"`
	LaborPct       decimal.Decimal `gorm:"column:labor_pct;type:numeric(5,2);not null;default:0"`
	GSTPct         decimal.Decimal `gorm:"column:gst_pct;type:numeric(5,2);not null;default:0"`

	Variants  []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductVariant optionally overrides price or weight for a product option.
type ProductVariant struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	Name        string           `gorm:"column:name;not null"`
	SalePrice   *decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2)"`
	WeightGrams *decimal.Decimal `gorm:"column:weight_grams;type:numeric(10,3)"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
}

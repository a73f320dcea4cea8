package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks stock counters for one (product, variant-or-null) pair.
// AvailableStock and the alert flags are derived; they are recomputed by
// inventory.RecomputeDerived after every mutation and never set ad hoc.
type InventoryItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_inventory_product_variant"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid;uniqueIndex:idx_inventory_product_variant"`

	CurrentStock   int `gorm:"column:current_stock;not null;default:0"`
	ReservedStock  int `gorm:"column:reserved_stock;not null;default:0"`
	AvailableStock int `gorm:"column:available_stock;not null;default:0"`
	ReorderPoint   int `gorm:"column:reorder_point;not null;default:0"`
	MaxStock       int `gorm:"column:max_stock;not null;default:0"`
	TotalPurchased int `gorm:"column:total_purchased;not null;default:0"`
	TotalSold      int `gorm:"column:total_sold;not null;default:0"`

	LowStock   bool `gorm:"column:low_stock;not null;default:false"`
	OutOfStock bool `gorm:"column:out_of_stock;not null;default:false"`
	OverStock  bool `gorm:"column:over_stock;not null;default:false"`

	LastRestocked *time.Time `gorm:"column:last_restocked"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

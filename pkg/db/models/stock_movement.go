package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kashvicreations/kashvi-backend/pkg/enums"
)

// StockMovement is one entry in the append-only inventory audit trail.
// Rows are only ever inserted, never updated or deleted.
type StockMovement struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InventoryID uuid.UUID          `gorm:"column:inventory_id;type:uuid;not null;index"`
	Type        enums.MovementType `gorm:"column:type;type:text;not null"`
	Quantity    int                `gorm:"column:quantity;not null"`
	Reason      string             `gorm:"column:reason;not null"`
	OrderID     *uuid.UUID         `gorm:"column:order_id;type:uuid"`
	Actor       *string            `gorm:"column:actor"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}

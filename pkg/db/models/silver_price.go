package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SilverPrice is a commodity rate snapshot. At most one row is active at a
// time; activating a new snapshot deactivates every other row in the same
// transaction.
type SilverPrice struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PricePerGram decimal.Decimal `gorm:"column:price_per_gram;type:numeric(12,2);not null"`
	Currency     string          `gorm:"column:currency;not null;default:'INR'"`
	Source       string          `gorm:"column:source;not null"`
	LastUpdated  time.Time       `gorm:"column:last_updated;not null"`
	IsActive     bool            `gorm:"column:is_active;not null;default:false"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

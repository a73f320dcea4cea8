package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoyaltyProgram is the active points configuration. Like SilverPrice, at most
// one row is active at a time.
type LoyaltyProgram struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string          `gorm:"column:name;not null"`
	PointsPerRupee decimal.Decimal `gorm:"column:points_per_rupee;type:numeric(8,4);not null"`
	IsActive       bool            `gorm:"column:is_active;not null;default:false"`
	Tiers          []LoyaltyTier   `gorm:"foreignKey:ProgramID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// LoyaltyTier is one rung of a program; the highest MinPoints at or below the
// member's total wins.
type LoyaltyTier struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProgramID uuid.UUID `gorm:"column:program_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	MinPoints int       `gorm:"column:min_points;not null"`
}

// LoyaltyAccount accumulates a user's points, lifetime spend and tier.
type LoyaltyAccount struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	TotalPoints    int             `gorm:"column:total_points;not null;default:0"`
	LifetimePoints int             `gorm:"column:lifetime_points;not null;default:0"`
	LifetimeSpend  decimal.Decimal `gorm:"column:lifetime_spend;type:numeric(14,2);not null;default:0"`
	Tier           string          `gorm:"column:tier;not null;default:''"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// LoyaltyAward records one per-order point grant. The unique order id is the
// persisted guard that keeps awarding idempotent per completed order.
type LoyaltyAward struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Points    int       `gorm:"column:points;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

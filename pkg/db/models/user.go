package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	"github.com/kashvicreations/kashvi-backend/pkg/types"
)

// User is the minimal account record the core needs: identity, role and the
// saved address used as a per-field fallback during order creation.
type User struct {
	ID           uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string        `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string        `gorm:"column:password_hash;not null"`
	Name         string        `gorm:"column:name;not null"`
	Phone        string        `gorm:"column:phone"`
	Role         enums.Role    `gorm:"column:role;type:text;not null;default:'user'"`
	SavedAddress types.Address `gorm:"column:saved_address;type:jsonb;serializer:json"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

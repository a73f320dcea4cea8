package pricing

import (
	"context"

	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
)

// Repository manages persistence for silver price snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActive(ctx context.Context) (*models.SilverPrice, error)
	FindLatest(ctx context.Context) (*models.SilverPrice, error)
	DeactivateAll(ctx context.Context) error
	Create(ctx context.Context, price *models.SilverPrice) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a silver price repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActive(ctx context.Context) (*models.SilverPrice, error) {
	var price models.SilverPrice
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("last_updated DESC").
		First(&price).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *repository) FindLatest(ctx context.Context) (*models.SilverPrice, error) {
	var price models.SilverPrice
	err := r.db.WithContext(ctx).
		Order("last_updated DESC").
		First(&price).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *repository) DeactivateAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&models.SilverPrice{}).
		Where("is_active = ?", true).
		Update("is_active", false).Error
}

func (r *repository) Create(ctx context.Context, price *models.SilverPrice) error {
	return r.db.WithContext(ctx).Create(price).Error
}

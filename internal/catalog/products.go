package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
)

// ProductRepository is the narrow catalog read surface the order flows need.
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository returns a product repository bound to the provided database.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &productRepository{db: tx}
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", variantID, productID).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

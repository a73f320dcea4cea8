package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
)

// CartRepository is the cart surface the payment flows touch. The core never
// mutates cart contents except to empty them after a completed payment.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
}

type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository returns a cart repository bound to the provided database.
func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &cartRepository{db: tx}
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

// ClearItems empties a cart. A missing cart is not an error here since the
// caller treats the clear as a best-effort side effect of payment completion.
func (r *cartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

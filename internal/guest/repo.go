package guest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
)

// Repository persists guest orders and their single-use conversion tokens.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.GuestOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.GuestOrder, error)
	FindByToken(ctx context.Context, token string) (*models.GuestOrder, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (bool, error)
	ClaimToken(ctx context.Context, token string, userID, orderID uuid.UUID, now time.Time) (bool, error)
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a guest order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.GuestOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.GuestOrder, error) {
	var order models.GuestOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByToken(ctx context.Context, token string) (*models.GuestOrder, error) {
	var order models.GuestOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("conversion_token = ?", token).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkPaid flips the guest order's payment status in one conditional UPDATE
// so duplicate webhook deliveries stay benign.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.GuestOrder{}).
		Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPending).
		Update("payment_status", enums.PaymentStatusComplete)
	return res.RowsAffected > 0, res.Error
}

// PurgeExpired removes guest orders whose conversion window closed without a
// payment or an account claim, together with their line items.
func (r *repository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	expired := r.db.WithContext(ctx).
		Model(&models.GuestOrder{}).
		Select("id").
		Where("token_expires_at < ? AND converted_to_user IS NULL AND payment_status = ?", cutoff, enums.PaymentStatusPending)

	if err := r.db.WithContext(ctx).
		Where("guest_order_id IN (?)", expired).
		Delete(&models.GuestOrderItem{}).Error; err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).
		Where("token_expires_at < ? AND converted_to_user IS NULL AND payment_status = ?", cutoff, enums.PaymentStatusPending).
		Delete(&models.GuestOrder{})
	return res.RowsAffected, res.Error
}

// ClaimToken consumes the conversion token. The unused-and-unexpired guard
// lives in the WHERE clause so a concurrent second attempt affects zero rows.
func (r *repository) ClaimToken(ctx context.Context, token string, userID, orderID uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.GuestOrder{}).
		Where("conversion_token = ? AND converted_to_user IS NULL AND token_expires_at > ?", token, now).
		Updates(map[string]any{
			"converted_to_user":  userID,
			"converted_order_id": orderID,
		})
	return res.RowsAffected > 0, res.Error
}

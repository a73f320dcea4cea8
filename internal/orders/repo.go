package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
)

// Repository persists orders and their line-item snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	UpdateLineItem(ctx context.Context, item *models.OrderLineItem) error
	UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
	UpdateStatuses(ctx context.Context, id uuid.UUID, orderStatus *enums.OrderStatus, paymentStatus *enums.PaymentStatus) error
	SetRazorpayOrderID(ctx context.Context, id uuid.UUID, razorpayOrderID string) error
	MarkPaymentComplete(ctx context.Context, id uuid.UUID, gateway enums.Gateway, txnID string) (bool, error)
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) (bool, error)
	DeletePending(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var list []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) UpdateLineItem(ctx context.Context, item *models.OrderLineItem) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{"qty": item.Qty, "total": item.Total}).Error
}

func (r *repository) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("total_amount", total).Error
}

func (r *repository) UpdateStatuses(ctx context.Context, id uuid.UUID, orderStatus *enums.OrderStatus, paymentStatus *enums.PaymentStatus) error {
	updates := map[string]any{}
	if orderStatus != nil {
		updates["order_status"] = *orderStatus
	}
	if paymentStatus != nil {
		updates["payment_status"] = *paymentStatus
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) SetRazorpayOrderID(ctx context.Context, id uuid.UUID, razorpayOrderID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("razorpay_order_id", razorpayOrderID).Error
}

// MarkPaymentComplete flips payment_status in one conditional UPDATE gated on
// the row still being PENDING. The caller interprets a zero row count.
func (r *repository) MarkPaymentComplete(ctx context.Context, id uuid.UUID, gateway enums.Gateway, txnID string) (bool, error) {
	updates := map[string]any{
		"payment_status": enums.PaymentStatusComplete,
		"transaction_id": txnID,
	}
	switch gateway {
	case enums.GatewayStripe:
		updates["stripe_payment_id"] = txnID
	case enums.GatewayCCAvenue:
		updates["ccavenue_tracking_id"] = txnID
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPending).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) MarkPaymentFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPending).
		Update("payment_status", enums.PaymentStatusFailed)
	return res.RowsAffected > 0, res.Error
}

// DeletePending hard-deletes an order that never left PENDING, along with its
// line items. Completed orders are never deleted through this path.
func (r *repository) DeletePending(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPending).
		Delete(&models.Order{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Delete(&models.OrderLineItem{}).Error
	return true, err
}

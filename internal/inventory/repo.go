package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
)

// Repository manages persistence for inventory rows and their movement log.
// Counter mutations are single conditional statements so concurrent movements
// cannot interleave into a lost update.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.InventoryItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	FindByProductVariant(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*models.InventoryItem, error)
	List(ctx context.Context) ([]models.InventoryItem, error)
	ListAlerted(ctx context.Context) ([]models.InventoryItem, error)
	UpdateThresholds(ctx context.Context, id uuid.UUID, reorderPoint, maxStock int) error

	AddStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	RemoveStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	Reserve(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	Unreserve(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	SetStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	ReturnStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	RecomputeDerived(ctx context.Context, id uuid.UUID) error

	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	ListMovements(ctx context.Context, inventoryID uuid.UUID) ([]models.StockMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindByProductVariant(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	query := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if variantID == nil {
		query = query.Where("variant_id IS NULL")
	} else {
		query = query.Where("variant_id = ?", *variantID)
	}
	if err := query.First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) List(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListAlerted(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("low_stock = ? OR out_of_stock = ? OR over_stock = ?", true, true, true).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateThresholds(ctx context.Context, id uuid.UUID, reorderPoint, maxStock int) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reorder_point": reorderPoint,
			"max_stock":     maxStock,
		}).Error
}

func (r *repository) AddStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET current_stock = current_stock + ?,
			total_purchased = total_purchased + ?,
			last_restocked = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, qty, id)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) RemoveStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET current_stock = current_stock - ?,
			total_sold = total_sold + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND current_stock >= ?
	`, qty, qty, id, qty)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) Reserve(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET reserved_stock = reserved_stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND current_stock - reserved_stock >= ?
	`, qty, id, qty)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) Unreserve(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET reserved_stock = CASE WHEN reserved_stock >= ? THEN reserved_stock - ? ELSE 0 END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, qty, id)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) SetStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET current_stock = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, id)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) ReturnStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET current_stock = current_stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, id)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) RecomputeDerived(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET available_stock = CASE WHEN current_stock - reserved_stock > 0 THEN current_stock - reserved_stock ELSE 0 END,
			out_of_stock = current_stock - reserved_stock <= 0,
			low_stock = current_stock - reserved_stock > 0 AND current_stock - reserved_stock <= reorder_point,
			over_stock = current_stock > max_stock,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id).Error
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListMovements(ctx context.Context, inventoryID uuid.UUID) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	err := r.db.WithContext(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("created_at ASC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

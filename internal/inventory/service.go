package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// MovementInput captures one requested stock movement.
type MovementInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Type      enums.MovementType
	Quantity  int
	Reason    string
	OrderID   *uuid.UUID
	Actor     *string
}

// EnsureItemInput seeds or configures the inventory row for a product.
type EnsureItemInput struct {
	ProductID    uuid.UUID
	VariantID    *uuid.UUID
	ReorderPoint int
	MaxStock     int
}

// Service applies stock movements and exposes inventory reads.
type Service interface {
	ApplyMovement(ctx context.Context, input MovementInput) (*models.InventoryItem, error)
	ApplyMovementTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryItem, error)
	EnsureItem(ctx context.Context, input EnsureItemInput) (*models.InventoryItem, error)
	UpdateThresholds(ctx context.Context, id uuid.UUID, reorderPoint, maxStock int) (*models.InventoryItem, error)
	Item(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*models.InventoryItem, error)
	ItemByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	List(ctx context.Context) ([]models.InventoryItem, error)
	Alerts(ctx context.Context) ([]models.InventoryItem, error)
	Movements(ctx context.Context, inventoryID uuid.UUID) ([]models.StockMovement, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires the inventory service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// ApplyMovement runs the movement in its own transaction.
func (s *service) ApplyMovement(ctx context.Context, input MovementInput) (*models.InventoryItem, error) {
	var updated *models.InventoryItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		item, err := s.ApplyMovementTx(ctx, tx, input)
		if err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ApplyMovementTx applies one movement inside the caller's transaction. The
// counter change is a single guarded statement; a failed guard rejects the
// whole movement and nothing is appended to the log.
func (s *service) ApplyMovementTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryItem, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)

	item, err := repo.FindByProductVariant(ctx, input.ProductID, input.VariantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}

	applied, err := s.applyCounter(ctx, repo, item.ID, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply stock movement")
	}
	if !applied {
		return nil, guardFailure(input.Type)
	}

	if err := repo.RecomputeDerived(ctx, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute inventory state")
	}

	movement := &models.StockMovement{
		ID:          uuid.New(),
		InventoryID: item.ID,
		Type:        input.Type,
		Quantity:    input.Quantity,
		Reason:      input.Reason,
		OrderID:     input.OrderID,
		Actor:       input.Actor,
	}
	if err := repo.CreateMovement(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append stock movement")
	}

	updated, err := repo.FindByID(ctx, item.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory item")
	}
	return updated, nil
}

func (s *service) applyCounter(ctx context.Context, repo Repository, id uuid.UUID, input MovementInput) (bool, error) {
	switch input.Type {
	case enums.MovementTypeIn:
		return repo.AddStock(ctx, id, input.Quantity)
	case enums.MovementTypeOut:
		return repo.RemoveStock(ctx, id, input.Quantity)
	case enums.MovementTypeReserved:
		return repo.Reserve(ctx, id, input.Quantity)
	case enums.MovementTypeUnreserved:
		return repo.Unreserve(ctx, id, input.Quantity)
	case enums.MovementTypeAdjustment:
		return repo.SetStock(ctx, id, input.Quantity)
	case enums.MovementTypeReturn:
		return repo.ReturnStock(ctx, id, input.Quantity)
	default:
		return false, fmt.Errorf("unhandled movement type %q", input.Type)
	}
}

func guardFailure(movementType enums.MovementType) error {
	switch movementType {
	case enums.MovementTypeReserved:
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient available stock")
	case enums.MovementTypeOut:
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")
	default:
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
}

func validateMovement(input MovementInput) error {
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement type %q", input.Type))
	}
	if input.Type == enums.MovementTypeAdjustment {
		if input.Quantity < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "adjustment quantity must not be negative")
		}
	} else if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.Reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}
	return nil
}

// EnsureItem creates the inventory row when missing, otherwise updates its
// thresholds.
func (s *service) EnsureItem(ctx context.Context, input EnsureItemInput) (*models.InventoryItem, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.ReorderPoint < 0 || input.MaxStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "thresholds must not be negative")
	}

	var result *models.InventoryItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindByProductVariant(ctx, input.ProductID, input.VariantID)
		if err == nil {
			if err := repo.UpdateThresholds(ctx, existing.ID, input.ReorderPoint, input.MaxStock); err != nil {
				return err
			}
			if err := repo.RecomputeDerived(ctx, existing.ID); err != nil {
				return err
			}
			result, err = repo.FindByID(ctx, existing.ID)
			return err
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		item := &models.InventoryItem{
			ID:           uuid.New(),
			ProductID:    input.ProductID,
			VariantID:    input.VariantID,
			ReorderPoint: input.ReorderPoint,
			MaxStock:     input.MaxStock,
			OutOfStock:   true,
		}
		if err := repo.Create(ctx, item); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure inventory item")
	}
	return result, nil
}

func (s *service) UpdateThresholds(ctx context.Context, id uuid.UUID, reorderPoint, maxStock int) (*models.InventoryItem, error) {
	if reorderPoint < 0 || maxStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "thresholds must not be negative")
	}

	var result *models.InventoryItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateThresholds(ctx, id, reorderPoint, maxStock); err != nil {
			return err
		}
		if err := repo.RecomputeDerived(ctx, id); err != nil {
			return err
		}
		var err error
		result, err = repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory thresholds")
	}
	return result, nil
}

func (s *service) Item(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.repo.FindByProductVariant(ctx, productID, variantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return item, nil
}

func (s *service) ItemByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return item, nil
}

func (s *service) List(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	return items, nil
}

func (s *service) Alerts(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.repo.ListAlerted(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory alerts")
	}
	return items, nil
}

func (s *service) Movements(ctx context.Context, inventoryID uuid.UUID) ([]models.StockMovement, error) {
	movements, err := s.repo.ListMovements(ctx, inventoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock movements")
	}
	return movements, nil
}

package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kashvicreations/kashvi-backend/api/middleware"
	"github.com/kashvicreations/kashvi-backend/api/responses"
	"github.com/kashvicreations/kashvi-backend/api/validators"
	"github.com/kashvicreations/kashvi-backend/internal/inventory"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

// ListInventory returns the tracked stock snapshot, alerted rows included.
func ListInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// InventoryAlerts returns only the rows at or below their reorder point.
func InventoryAlerts(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		items, err := svc.Alerts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// InventoryMovements returns the append-only movement history for one item.
func InventoryMovements(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		inventoryID, err := parseUUIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		movements, err := svc.Movements(r.Context(), inventoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, movements)
	}
}

type movementBody struct {
	Type     string `json:"type" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Reason   string `json:"reason"`
}

// ApplyInventoryMovement records one manual stock movement on an item.
func ApplyInventoryMovement(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		inventoryID, err := parseUUIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body movementBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		movementType, err := enums.ParseMovementType(body.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement type"))
			return
		}

		item, err := svc.ItemByID(r.Context(), inventoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inventory.MovementInput{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Type:      movementType,
			Quantity:  body.Quantity,
			Reason:    validators.SanitizeString(body.Reason, 256),
		}
		if actor := middleware.UserIDFromContext(r.Context()); actor != "" {
			input.Actor = &actor
		}

		updated, err := svc.ApplyMovement(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

type ensureItemBody struct {
	ProductID    uuid.UUID  `json:"productId" validate:"required"`
	VariantID    *uuid.UUID `json:"variantId"`
	ReorderPoint int        `json:"reorderPoint" validate:"gte=0"`
	MaxStock     int        `json:"maxStock" validate:"gte=0"`
}

// EnsureInventoryItem creates the tracking row for a product or variant if
// one does not exist yet.
func EnsureInventoryItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		var body ensureItemBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.EnsureItem(r.Context(), inventory.EnsureItemInput{
			ProductID:    body.ProductID,
			VariantID:    body.VariantID,
			ReorderPoint: body.ReorderPoint,
			MaxStock:     body.MaxStock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

type thresholdsBody struct {
	ReorderPoint int `json:"reorderPoint" validate:"gte=0"`
	MaxStock     int `json:"maxStock" validate:"gte=0"`
}

// UpdateInventoryThresholds changes an item's alert thresholds.
func UpdateInventoryThresholds(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		inventoryID, err := parseUUIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body thresholdsBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateThresholds(r.Context(), inventoryID, body.ReorderPoint, body.MaxStock)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

package controllers

import (
	"net/http"

	"github.com/kashvicreations/kashvi-backend/api/responses"
	"github.com/kashvicreations/kashvi-backend/api/validators"
	"github.com/kashvicreations/kashvi-backend/internal/orders"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

// AdminUpdateOrder normalizes free-form status strings and persists the
// resulting transition on any order.
func AdminUpdateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body orders.StatusUpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AdminUpdateStatus(r.Context(), orderID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

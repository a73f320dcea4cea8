package controllers

import (
	"net/http"

	"github.com/kashvicreations/kashvi-backend/api/responses"
	"github.com/kashvicreations/kashvi-backend/api/validators"
	"github.com/kashvicreations/kashvi-backend/internal/guest"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

// PlaceGuestOrder accepts an unauthenticated checkout and returns the order
// together with its single-use conversion token.
func PlaceGuestOrder(svc guest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest service unavailable"))
			return
		}
		var body guest.PlaceInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Place(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ConvertGuestToUser claims a conversion token, creates the account and
// re-homes the guest order under it.
func ConvertGuestToUser(svc guest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest service unavailable"))
			return
		}
		var body guest.ConvertInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Convert(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

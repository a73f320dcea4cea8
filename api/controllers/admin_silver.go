package controllers

import (
	"net/http"

	"github.com/kashvicreations/kashvi-backend/api/responses"
	"github.com/kashvicreations/kashvi-backend/internal/pricing"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

// CurrentSilverPrice returns the rate dynamic pricing is using right now,
// including its source and freshness.
func CurrentSilverPrice(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		rate, err := svc.CurrentRate(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rate)
	}
}

// RefreshSilverPrice forces an immediate fetch from the external source.
func RefreshSilverPrice(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		rate, err := svc.RefreshRate(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rate)
	}
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kashvicreations/kashvi-backend/api/middleware"
	"github.com/kashvicreations/kashvi-backend/pkg/auth"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
)

func currentPrincipal(r *http.Request) (auth.Principal, error) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || principal.UserID == uuid.Nil {
		return auth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return principal, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

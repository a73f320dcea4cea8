package middleware

import (
	"net/http"
	"strings"

	"github.com/kashvicreations/kashvi-backend/api/responses"
	pkgAuth "github.com/kashvicreations/kashvi-backend/pkg/auth"
	"github.com/kashvicreations/kashvi-backend/pkg/config"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// resolved principal.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			principal := claims.Principal()
			ctx := WithPrincipal(r.Context(), principal)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    principal.UserID.String(),
					"actor_role": string(principal.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package middleware

import (
	"context"

	"github.com/kashvicreations/kashvi-backend/pkg/auth"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// PrincipalFromContext returns the authenticated principal, or false when the
// request was not authenticated.
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	if ctx == nil {
		return auth.Principal{}, false
	}
	p, ok := ctx.Value(ctxPrincipal).(auth.Principal)
	return p, ok
}

// UserIDFromContext returns the authenticated user id as a string, or empty
// for unauthenticated requests.
func UserIDFromContext(ctx context.Context) string {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return ""
	}
	return p.UserID.String()
}

// WithPrincipal injects the principal into the context.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}

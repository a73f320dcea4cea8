package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kashvicreations/kashvi-backend/pkg/enums"
)

// Principal is the single identity attached to a request: one user id and one
// role, resolved exactly once by the auth middleware.
type Principal struct {
	UserID uuid.UUID
	Role   enums.Role
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == enums.RoleAdmin
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal converts validated claims into the request principal.
func (c *AccessTokenClaims) Principal() Principal {
	return Principal{UserID: c.UserID, Role: c.Role}
}

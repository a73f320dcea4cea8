package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kashvicreations/kashvi-backend/pkg/config"
	apperrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
)

// MintAccessToken signs a new HS256 access token for the given payload.
func MintAccessToken(cfg config.JWTConfig, payload AccessTokenPayload) (string, error) {
	if payload.UserID == uuid.Nil {
		return "", apperrors.New(apperrors.CodeInternal, "mint access token: empty user id")
	}
	if !payload.Role.IsValid() {
		return "", apperrors.New(apperrors.CodeInternal, "mint access token: invalid role")
	}

	now := time.Now().UTC()
	claims := AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, err, "mint access token")
	}
	return signed, nil
}

// ParseAccessToken validates the token signature, issuer and expiry, and
// returns the typed claims.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "unexpected signing method")
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnauthorized, err, "parse access token")
	}
	if !token.Valid {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid access token")
	}
	if claims.UserID == uuid.Nil || !claims.Role.IsValid() {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "malformed access token claims")
	}
	return claims, nil
}

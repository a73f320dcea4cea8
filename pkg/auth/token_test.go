package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/kashvicreations/kashvi-backend/pkg/config"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	apperrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret-please-rotate",
		Issuer:            "kashvi-test",
		ExpirationMinutes: 15,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	raw, err := MintAccessToken(cfg, AccessTokenPayload{UserID: userID, Role: enums.RoleUser})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}
	if raw == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ParseAccessToken(cfg, raw)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.Role != enums.RoleUser {
		t.Errorf("role = %s, want %s", claims.Role, enums.RoleUser)
	}
	if claims.Issuer != cfg.Issuer {
		t.Errorf("issuer = %s, want %s", claims.Issuer, cfg.Issuer)
	}

	p := claims.Principal()
	if p.UserID != userID || p.Role != enums.RoleUser {
		t.Errorf("principal = %+v", p)
	}
	if p.IsAdmin() {
		t.Error("user principal reported as admin")
	}
}

func TestMintAccessToken_RejectsInvalidPayload(t *testing.T) {
	cfg := testJWTConfig()

	if _, err := MintAccessToken(cfg, AccessTokenPayload{Role: enums.RoleUser}); err == nil {
		t.Error("expected error for empty user id")
	}
	if _, err := MintAccessToken(cfg, AccessTokenPayload{UserID: uuid.New(), Role: enums.Role("root")}); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestParseAccessToken_RejectsTamperedToken(t *testing.T) {
	cfg := testJWTConfig()

	raw, err := MintAccessToken(cfg, AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	other := cfg
	other.Secret = "a-different-secret"
	_, err = ParseAccessToken(other, raw)
	if err == nil {
		t.Fatal("expected error for wrong secret")
	}
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeUnauthorized {
		t.Errorf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestParseAccessToken_RejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()

	raw, err := MintAccessToken(cfg, AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleUser})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	other := cfg
	other.Issuer = "somebody-else"
	if _, err := ParseAccessToken(other, raw); err == nil {
		t.Error("expected error for issuer mismatch")
	}
}

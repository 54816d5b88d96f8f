package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/souqline/souqline-backend/pkg/config"
	"github.com/souqline/souqline-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "souqline", ExpirationMinutes: 5}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	branchID := uuid.New()
	raw, err := SignAccessToken(cfg, AccessClaims{
		UserID:   uuid.New(),
		Role:     enums.RoleBranchAdmin,
		BranchID: &branchID,
		Country:  "EG",
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := ParseAccessToken(cfg, raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Role != enums.RoleBranchAdmin || claims.BranchID == nil || *claims.BranchID != branchID {
		t.Fatalf("claims mismatch: %+v", claims)
	}

	act := claims.Actor()
	if !act.IsBranchAdminFor(branchID) {
		t.Fatal("claims should produce a branch-scoped actor")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	raw, err := SignAccessToken(cfg, AccessClaims{UserID: uuid.New(), Role: enums.RoleUser})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	bad := cfg
	bad.Secret = "other-secret"
	if _, err := ParseAccessToken(bad, raw); err == nil {
		t.Fatal("wrong secret must fail verification")
	}
}

func TestParseRejectsUnknownRole(t *testing.T) {
	cfg := testJWTConfig()
	raw, err := SignAccessToken(cfg, AccessClaims{UserID: uuid.New(), Role: enums.UserRole("superuser")})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, raw); err == nil {
		t.Fatal("unknown role must fail")
	}
}

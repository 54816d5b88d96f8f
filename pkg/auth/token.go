package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/config"
	"github.com/souqline/souqline-backend/pkg/enums"
)

// AccessClaims is the access-token payload issued by the external identity
// provider. The core only verifies and reads it; it never issues tokens.
type AccessClaims struct {
	UserID   uuid.UUID      `json:"uid"`
	Role     enums.UserRole `json:"role"`
	BranchID *uuid.UUID     `json:"branchId,omitempty"`
	Country  string         `json:"country,omitempty"`
	jwt.RegisteredClaims
}

// ParseAccessToken verifies the signature and issuer of a bearer token and
// returns its claims.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("token missing user id")
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("token carries unknown role %q", claims.Role)
	}
	return claims, nil
}

// SignAccessToken mints a token for tests and local tooling.
func SignAccessToken(cfg config.JWTConfig, claims AccessClaims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// Actor converts the claims into the explicit per-request actor.
func (c *AccessClaims) Actor() actor.Actor {
	return actor.Actor{
		UserID:   c.UserID,
		Role:     c.Role,
		BranchID: c.BranchID,
		Country:  c.Country,
	}
}

// Package jwtx is the access-token codec: it signs and verifies the
// short-lived JWTs the auth service issues. Refresh tokens are opaque
// random values and never pass through this package, so an access token
// can never be replayed as a refresh token or vice versa.
package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token TTLs. Short access tokens are the revocation story for
// this service: there is no denylist, a token simply ages out.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenTypeAccess is the only token type this codec mints. The claim is
// checked on verify so tokens minted for another purpose are rejected.
const TokenTypeAccess = "access"

// Claims are the access-token claims shared across the BMS services.
type Claims struct {
	jwt.RegisteredClaims

	// TokenType guards against cross-use of signed material.
	TokenType string `json:"token_type"`

	// Role is the user's single role name.
	Role string `json:"role,omitempty"`

	// Permissions is the effective permission snapshot resolved at
	// issuance time. Resource services authorize against this list;
	// sensitive operations re-check live instead.
	Permissions []string `json:"permissions,omitempty"`
}

// NewAccessClaims builds minimally-correct access-token claims.
func NewAccessClaims(
	subject, role string,
	permissions []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		TokenType:   TokenTypeAccess,
		Role:        role,
		Permissions: permissions,
	}
}

// HasPermission reports whether the snapshot contains the permission.
func (c *Claims) HasPermission(perm string) bool {
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// ValidateIssuer checks the issuer when one is expected.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateTokenType rejects claims minted for a different use.
func (c *Claims) ValidateTokenType(expected string) error {
	if c.TokenType != expected {
		return ErrTokenType
	}
	return nil
}

// ValidateExpiry ensures the token is inside its validity window.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt == nil || now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}

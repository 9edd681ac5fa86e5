package domain

import "time"

// TokenPair is what the login and refresh operations return: a short-lived
// signed access token and an opaque refresh token.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // access token lifetime
}

// RefreshToken models the stored refresh token record. Only the SHA-256
// fingerprint of the opaque value is persisted.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // base64url SHA-256 of the opaque value
	CreatedIP string

	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time

	// ReplacedBy points at the successor record created when this token
	// was rotated. The links form a strictly forward chain that reuse
	// detection walks; authorization never follows it.
	ReplacedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the record can no longer be redeemed. Terminal
// is permanent: a rotated or revoked token never becomes active again.
func (t RefreshToken) Terminal(now time.Time) bool {
	return t.Revoked || now.After(t.ExpiresAt)
}

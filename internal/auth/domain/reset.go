package domain

import "time"

// PasswordResetToken is the single-use reset record. Like refresh tokens,
// only the fingerprint of the opaque value is stored.
type PasswordResetToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	Consumed   bool
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

package domain

import "time"

// User account status values. Tokens are only issued or refreshed for
// active accounts.
const (
	UserStatusActive    = "active"
	UserStatusInactive  = "inactive"
	UserStatusSuspended = "suspended"
)

// User is the credential-store record. The auth core reads it but only
// ever mutates the password hash (on reset).
type User struct {
	ID           string
	Email        string
	PasswordHash string // argon2id encoded
	RoleID       string // exactly one role per user
	Status       string

	// PermsAllow and PermsDeny are per-user permission overrides layered
	// on top of the role grants. Deny wins over everything.
	PermsAllow []string
	PermsDeny  []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether tokens may be issued for this account.
func (u User) IsActive() bool { return u.Status == UserStatusActive }

package store

import (
	"context"
	"errors"
	"time"

	"github.com/risinghq/bmsauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement it. Sub-repositories keep concerns tidy and make it
// obvious which operations are available inside a transaction.
type Store interface {
	Users() Users
	Roles() Roles
	RefreshTokens() RefreshTokens
	ResetTokens() ResetTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit() or Rollback().
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rollback when fn errors,
	// commit otherwise. This is how all multi-step mutations (refresh
	// rotation, reset consumption, password reset) run.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases underlying resources.
	Close() error

	// Ping verifies the database connection is alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Same repositories plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login and forgot-password. Emails are
	// stored lowercased.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the argon2id hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateStatus moves the account between active/inactive/suspended.
	UpdateStatus(ctx context.Context, userID string, status string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Roles interface {
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)

	// GetRoleByName fetches a role by its unique name (used by seeding).
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	ListRoles(ctx context.Context) ([]domain.Role, error)

	CreateRole(ctx context.Context, r domain.Role) error

	// UpdateRolePermissions replaces the grant list for a role.
	UpdateRolePermissions(ctx context.Context, roleID string, permissions []string) error

	// IsEmpty returns true if there are no roles.
	IsEmpty(ctx context.Context) (bool, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record matching the fingerprint
	// of a presented opaque value.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// GetRefreshTokenByID is used when walking a rotation chain.
	GetRefreshTokenByID(ctx context.Context, id string) (domain.RefreshToken, error)

	// ClaimRefreshToken conditionally marks an active record terminal
	// (revoked, replaced_by=replacedBy). Returns false when the record
	// was already terminal, which is how a concurrent redemption loses
	// the race. Runs as a single UPDATE so the database arbitrates.
	ClaimRefreshToken(ctx context.Context, id, replacedBy string, at time.Time) (bool, error)

	// RevokeRefreshToken marks one record terminal. Idempotent.
	RevokeRefreshToken(ctx context.Context, id string, at time.Time) error

	// RevokeAllUserRefreshTokens bulk-revokes every active token for a
	// user (logout-everywhere, password reset, compromise response).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string, at time.Time) error

	// DeleteExpiredRefreshTokens garbage-collects records whose expiry
	// predates the cutoff (expiry + retention window).
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) error
}

type ResetTokens interface {
	// CreateResetToken stores a new password-reset record.
	CreateResetToken(ctx context.Context, t domain.PasswordResetToken) error

	// GetResetTokenByHash returns the record for a presented value.
	GetResetTokenByHash(ctx context.Context, hash string) (domain.PasswordResetToken, error)

	// ConsumeResetToken conditionally marks an unconsumed record
	// consumed. Returns false when it was already consumed, so two
	// concurrent resets can never both succeed.
	ConsumeResetToken(ctx context.Context, id string, at time.Time) (bool, error)

	// InvalidateUserResetTokens consumes every outstanding token for a
	// user. Called before issuing a new one so at most one live reset
	// token exists per user.
	InvalidateUserResetTokens(ctx context.Context, userID string, at time.Time) error

	// DeleteExpiredResetTokens garbage-collects expired records.
	DeleteExpiredResetTokens(ctx context.Context, before time.Time) error
}

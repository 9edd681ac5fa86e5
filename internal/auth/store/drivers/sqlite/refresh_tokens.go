package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/risinghq/bmsauth/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

const refreshTokenColumns = `id, user_id, token_hash, created_ip, expires_at, revoked, revoked_at, replaced_by, created_at, updated_at`

func (r *refreshTokensRepo) scanToken(row interface{ Scan(...any) error }) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	var revokedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.CreatedIP,
		&t.ExpiresAt, &t.Revoked, &revokedAt, &t.ReplacedBy,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.RevokedAt = mapNullTimePtr(revokedAt)
	return t, nil
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, created_ip, expires_at, revoked, revoked_at, replaced_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		t.ID, t.UserID, t.TokenHash, t.CreatedIP,
		t.ExpiresAt, t.Revoked, mapOptionalTime(t.RevokedAt), t.ReplacedBy,
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = ?`, hash)
	return r.scanToken(row)
}

func (r *refreshTokensRepo) GetRefreshTokenByID(ctx context.Context, id string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE id = ?`, id)
	return r.scanToken(row)
}

// ClaimRefreshToken is the rotation arbiter. The WHERE clause only matches
// a still-active row, so of N concurrent redemptions exactly one sees
// rows-affected == 1 and the rest lose.
func (r *refreshTokensRepo) ClaimRefreshToken(ctx context.Context, id, replacedBy string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked = 1, revoked_at = ?, replaced_by = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND revoked = 0 AND expires_at > ?`,
		at, replacedBy, id, at,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked = 1, revoked_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND revoked = 0`,
		at, id,
	)
	return err
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked = 1, revoked_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND revoked = 0`,
		at, userID,
	)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, before)
	return err
}

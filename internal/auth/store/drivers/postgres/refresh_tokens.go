package postgres

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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`,
		t.ID, t.UserID, t.TokenHash, t.CreatedIP,
		t.ExpiresAt, t.Revoked, mapOptionalTime(t.RevokedAt), t.ReplacedBy,
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = $1`, hash)
	return r.scanToken(row)
}

func (r *refreshTokensRepo) GetRefreshTokenByID(ctx context.Context, id string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE id = $1`, id)
	return r.scanToken(row)
}

func (r *refreshTokensRepo) ClaimRefreshToken(ctx context.Context, id, replacedBy string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $1, replaced_by = $2, updated_at = NOW()
		WHERE id = $3 AND revoked = FALSE AND expires_at > $4`,
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
		SET revoked = TRUE, revoked_at = $1, updated_at = NOW()
		WHERE id = $2 AND revoked = FALSE`,
		at, id,
	)
	return err
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $1, updated_at = NOW()
		WHERE user_id = $2 AND revoked = FALSE`,
		at, userID,
	)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
	return err
}

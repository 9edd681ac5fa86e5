package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/risinghq/bmsauth/internal/auth/domain"
)

type resetTokensRepo struct {
	db dbtx
}

func (r *resetTokensRepo) scanToken(row interface{ Scan(...any) error }) (domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	var consumedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt,
		&t.Consumed, &consumedAt, &t.CreatedAt,
	)
	if err != nil {
		return domain.PasswordResetToken{}, mapNotFound(err)
	}
	t.ConsumedAt = mapNullTimePtr(consumedAt)
	return t, nil
}

func (r *resetTokensRepo) CreateResetToken(ctx context.Context, t domain.PasswordResetToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, consumed, consumed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.Consumed, mapOptionalTime(t.ConsumedAt),
	)
	return err
}

func (r *resetTokensRepo) GetResetTokenByHash(ctx context.Context, hash string) (domain.PasswordResetToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, consumed, consumed_at, created_at
		FROM password_reset_tokens WHERE token_hash = $1`, hash)
	return r.scanToken(row)
}

func (r *resetTokensRepo) ConsumeResetToken(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE password_reset_tokens
		SET consumed = TRUE, consumed_at = $1
		WHERE id = $2 AND consumed = FALSE`,
		at, id,
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

func (r *resetTokensRepo) InvalidateUserResetTokens(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE password_reset_tokens
		SET consumed = TRUE, consumed_at = $1
		WHERE user_id = $2 AND consumed = FALSE`,
		at, userID,
	)
	return err
}

func (r *resetTokensRepo) DeleteExpiredResetTokens(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at < $1`, before)
	return err
}

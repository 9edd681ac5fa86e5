package postgres

import (
	"context"

	"github.com/risinghq/bmsauth/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, password_hash, role_id, status, perms_allow, perms_deny, created_at, updated_at`

func (r *usersRepo) scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	var allow, deny string
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.RoleID, &u.Status,
		&allow, &deny, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.PermsAllow = splitPerms(allow)
	u.PermsDeny = splitPerms(deny)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return r.scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, role_id, status, perms_allow, perms_deny, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
		u.ID, u.Email, u.PasswordHash, u.RoleID, u.Status,
		joinPerms(u.PermsAllow), joinPerms(u.PermsDeny),
	)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		newHash, userID,
	)
	return err
}

func (r *usersRepo) UpdateStatus(ctx context.Context, userID string, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, userID,
	)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}

package postgres

import (
	"context"

	"github.com/risinghq/bmsauth/internal/auth/domain"
)

type rolesRepo struct {
	db dbtx
}

func (r *rolesRepo) scanRole(row interface{ Scan(...any) error }) (domain.Role, error) {
	var role domain.Role
	var perms string
	err := row.Scan(&role.ID, &role.Name, &perms, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	role.Permissions = splitPerms(perms)
	return role, nil
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, permissions, created_at, updated_at FROM roles WHERE id = $1`, id)
	return r.scanRole(row)
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, permissions, created_at, updated_at FROM roles WHERE name = $1`, name)
	return r.scanRole(row)
}

func (r *rolesRepo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, permissions, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		role, err := r.scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (id, name, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())`,
		role.ID, role.Name, joinPerms(role.Permissions),
	)
	return err
}

func (r *rolesRepo) UpdateRolePermissions(ctx context.Context, roleID string, permissions []string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE roles SET permissions = $1, updated_at = NOW() WHERE id = $2`,
		joinPerms(permissions), roleID,
	)
	return err
}

func (r *rolesRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roles`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}

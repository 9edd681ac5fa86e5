package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/risinghq/bmsauth/internal/auth/domain"
	"github.com/risinghq/bmsauth/internal/auth/store"
	"github.com/risinghq/bmsauth/pkg/cryptox"
	"github.com/risinghq/bmsauth/pkg/idx"
	"github.com/risinghq/bmsauth/pkg/slogx"
)

var ErrBootstrapAdminRequired = errors.New("bootstrap requires admin email and password")

// BootstrapService seeds the built-in roles and the initial admin account
// on an empty database. Safe to call on every startup: a populated store
// is left untouched.
type BootstrapService struct {
	Store store.Store

	AdminEmail    string
	AdminPassword string
}

// IsBootstrapped reports whether roles and at least one user exist.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	rolesEmpty, err := s.Store.Roles().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	usersEmpty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !rolesEmpty && !usersEmpty, nil
}

// Bootstrap creates the admin/staff roles and the initial admin user in a
// single transaction. Returns the admin user id.
func (s *BootstrapService) Bootstrap(ctx context.Context) (string, error) {
	l := slogx.FromContext(ctx)

	if bootstrapped, err := s.IsBootstrapped(ctx); err != nil {
		return "", err
	} else if bootstrapped {
		return "", nil
	}

	if s.AdminEmail == "" || s.AdminPassword == "" {
		return "", ErrBootstrapAdminRequired
	}

	passHash, err := cryptox.HashPassword(s.AdminPassword)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return "", err
	}

	adminUserID := idx.New().String()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		adminRoleID := idx.New().String()
		if err := tx.Roles().CreateRole(ctx, domain.Role{
			ID:          adminRoleID,
			Name:        domain.RoleAdmin,
			Permissions: domain.AllPermissions(),
		}); err != nil {
			return err
		}

		if err := tx.Roles().CreateRole(ctx, domain.Role{
			ID:          idx.New().String(),
			Name:        domain.RoleStaff,
			Permissions: domain.StaffPermissions(),
		}); err != nil {
			return err
		}

		return tx.Users().CreateUser(ctx, domain.User{
			ID:           adminUserID,
			Email:        normalizeEmail(s.AdminEmail),
			PasswordHash: passHash,
			RoleID:       adminRoleID,
			Status:       domain.UserStatusActive,
		})
	})
	if err != nil {
		return "", err
	}

	l.Info("seeded roles and initial admin user", slog.String("admin_user_id", adminUserID))
	return adminUserID, nil
}

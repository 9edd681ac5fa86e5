package service

import (
	"context"
	"errors"
	"slices"

	"github.com/risinghq/bmsauth/internal/auth/domain"
	"github.com/risinghq/bmsauth/internal/auth/store"
)

// Resolver computes effective permission sets. Role grants plus user
// allow-overrides minus user deny-overrides; deny wins over both.
type Resolver struct {
	Store store.Store
}

// Snapshot resolves the user's role and effective permissions in one go,
// as embedded into access tokens at issuance and rotation time.
func (r *Resolver) Snapshot(ctx context.Context, user domain.User) (domain.Role, []string, error) {
	role, err := r.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return domain.Role{}, nil, err
	}
	return role, ResolvePermissions(role.Permissions, user.PermsAllow, user.PermsDeny), nil
}

// CheckPermission re-resolves from current reference data rather than
// trusting a token snapshot that may be minutes stale. Used for
// operations sensitive enough to pay the persistence read.
func (r *Resolver) CheckPermission(ctx context.Context, userID, permission string) error {
	user, err := r.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPermissionDenied
		}
		return err
	}
	if !user.IsActive() {
		return ErrAccountInactive
	}

	_, perms, err := r.Snapshot(ctx, user)
	if err != nil {
		return err
	}
	if !slices.Contains(perms, permission) {
		return ErrPermissionDenied
	}
	return nil
}

// ResolvePermissions is the pure resolution algorithm: union of role
// grants and allow-overrides, minus deny-overrides. The result is sorted
// and deduplicated so equal inputs always produce equal snapshots.
func ResolvePermissions(roleGrants, allow, deny []string) []string {
	denied := make(map[string]struct{}, len(deny))
	for _, p := range deny {
		denied[p] = struct{}{}
	}

	set := make(map[string]struct{}, len(roleGrants)+len(allow))
	for _, p := range roleGrants {
		if _, drop := denied[p]; !drop {
			set[p] = struct{}{}
		}
	}
	for _, p := range allow {
		if _, drop := denied[p]; !drop {
			set[p] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

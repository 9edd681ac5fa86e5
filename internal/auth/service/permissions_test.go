package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/risinghq/bmsauth/internal/auth/domain"
)

func TestResolvePermissions(t *testing.T) {
	t.Parallel()

	t.Run("deny overrides role grant", func(t *testing.T) {
		got := ResolvePermissions([]string{"a", "b"}, nil, []string{"b"})
		require.Equal(t, []string{"a"}, got)
	})

	t.Run("allow extends role grants", func(t *testing.T) {
		got := ResolvePermissions([]string{"a"}, []string{"c"}, nil)
		require.Equal(t, []string{"a", "c"}, got)
	})

	t.Run("deny overrides allow", func(t *testing.T) {
		got := ResolvePermissions([]string{"a"}, []string{"b"}, []string{"b"})
		require.Equal(t, []string{"a"}, got)
	})

	t.Run("result is sorted and deduplicated", func(t *testing.T) {
		got := ResolvePermissions([]string{"z", "a", "a"}, []string{"m", "z"}, nil)
		require.Equal(t, []string{"a", "m", "z"}, got)
	})

	t.Run("empty inputs", func(t *testing.T) {
		require.Empty(t, ResolvePermissions(nil, nil, nil))
		require.Empty(t, ResolvePermissions([]string{"a"}, nil, []string{"a"}))
	})
}

func TestResolverSnapshot(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", []string{domain.PermCustomersRead, domain.PermInvoicesRead})
	user := seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive,
		[]string{domain.PermReportsRead},
		[]string{domain.PermInvoicesRead},
	)

	r := &Resolver{Store: st}
	got, perms, err := r.Snapshot(ctx, user)
	require.NoError(t, err)
	require.Equal(t, role.ID, got.ID)
	require.Equal(t, []string{domain.PermCustomersRead, domain.PermReportsRead}, perms)
}

func TestCheckPermission(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", []string{domain.PermCustomersRead})
	user := seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, []string{})

	r := &Resolver{Store: st}

	t.Run("granted", func(t *testing.T) {
		require.NoError(t, r.CheckPermission(ctx, user.ID, domain.PermCustomersRead))
	})

	t.Run("not granted", func(t *testing.T) {
		err := r.CheckPermission(ctx, user.ID, domain.PermUsersManage)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("unknown user is denied", func(t *testing.T) {
		err := r.CheckPermission(ctx, "nope", domain.PermCustomersRead)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("inactive user", func(t *testing.T) {
		inactive := seedUser(t, st, "gone@example.com", role.ID, domain.UserStatusSuspended, nil, nil)
		err := r.CheckPermission(ctx, inactive.ID, domain.PermCustomersRead)
		require.ErrorIs(t, err, ErrAccountInactive)
	})

	t.Run("permission revoked after issuance shows up live", func(t *testing.T) {
		require.NoError(t, st.Roles().UpdateRolePermissions(ctx, role.ID, nil))
		err := r.CheckPermission(ctx, user.ID, domain.PermCustomersRead)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})
}

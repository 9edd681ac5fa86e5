package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/risinghq/bmsauth/internal/auth/domain"
	"github.com/risinghq/bmsauth/internal/auth/store"
	"github.com/risinghq/bmsauth/internal/auth/store/drivers/sqlite"
	"github.com/risinghq/bmsauth/pkg/cryptox"
	"github.com/risinghq/bmsauth/pkg/idx"
	"github.com/risinghq/bmsauth/pkg/jwtx"
)

const (
	testIssuer   = "bmsauth-test"
	testPassword = "correct horse battery"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedRole(t *testing.T, st store.Store, name string, perms []string) domain.Role {
	t.Helper()
	role := domain.Role{
		ID:          idx.New().String(),
		Name:        name,
		Permissions: perms,
	}
	require.NoError(t, st.Roles().CreateRole(context.Background(), role))
	return role
}

func seedUser(t *testing.T, st store.Store, email, roleID, status string, allow, deny []string) domain.User {
	t.Helper()
	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		RoleID:       roleID,
		Status:       status,
		PermsAllow:   allow,
		PermsDeny:    deny,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func newAuthService(t *testing.T, st store.Store) (*AuthService, jwtx.Verifier) {
	t.Helper()
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	verifier := jwtx.NewVerifierHS256(testSecret, testIssuer)

	svc := &AuthService{
		Store:  st,
		Signer: signer,
		Refresh: &RefreshLedger{
			Store:          st,
			TTL:            time.Hour,
			ReuseDetection: true,
		},
		Resets: &ResetLedger{
			Store: st,
			TTL:   time.Hour,
		},
		Resolver:        &Resolver{Store: st},
		Mailer:          &captureMailer{},
		Issuer:          testIssuer,
		AccessTTL:       15 * time.Minute,
		RotateOnRefresh: true,
	}
	return svc, verifier
}

// captureMailer keeps the issued reset tokens so tests can consume them.
type captureMailer struct {
	tokens []string
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.tokens = append(m.tokens, token)
	return nil
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", []string{domain.PermCustomersRead, domain.PermCustomersWrite})
	user := seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)
	svc, verifier := newAuthService(t, st)

	t.Run("valid credentials yield a verifiable pair", func(t *testing.T) {
		pair, got, err := svc.Login(ctx, "kim@example.com", testPassword, "10.0.0.1")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
		require.NotEmpty(t, pair.RefreshToken)

		claims, err := verifier.Verify(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, claims.Subject)
		require.Equal(t, "staff", claims.Role)
		require.Equal(t, []string{domain.PermCustomersRead, domain.PermCustomersWrite}, claims.Permissions)
	})

	t.Run("email is case-insensitive", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "  KIM@Example.COM ", testPassword, "10.0.0.1")
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "kim@example.com", "nope", "10.0.0.1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email yields the same error", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "ghost@example.com", testPassword, "10.0.0.1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		inactive := seedUser(t, st, "gone@example.com", role.ID, domain.UserStatusInactive, nil, nil)
		_, _, err := svc.Login(ctx, inactive.Email, testPassword, "10.0.0.1")
		require.ErrorIs(t, err, ErrAccountInactive)
	})
}

func TestRefreshRotationScenario(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", []string{domain.PermCustomersRead})
	seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)
	svc, verifier := newAuthService(t, st)

	pair1, _, err := svc.Login(ctx, "kim@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)
	rt1 := pair1.RefreshToken

	// RT1 -> RT2
	pair2, err := svc.RefreshTokens(ctx, rt1, "10.0.0.1")
	require.NoError(t, err)
	rt2 := pair2.RefreshToken
	require.NotEqual(t, rt1, rt2)

	claims, err := verifier.Verify(pair2.AccessToken)
	require.NoError(t, err)
	require.Equal(t, []string{domain.PermCustomersRead}, claims.Permissions)

	// Replaying RT1 is reuse: detected, and RT2 dies with the chain.
	_, err = svc.RefreshTokens(ctx, rt1, "10.0.0.1")
	require.ErrorIs(t, err, ErrTokenReuseDetected)

	_, err = svc.RefreshTokens(ctx, rt2, "10.0.0.1")
	require.ErrorIs(t, err, ErrTokenReuseDetected)
}

func TestRefreshWithoutRotation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", []string{domain.PermCustomersRead})
	seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)
	svc, _ := newAuthService(t, st)
	svc.RotateOnRefresh = false

	pair, _, err := svc.Login(ctx, "kim@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)

	// Without rotation the same value keeps working.
	next, err := svc.RefreshTokens(ctx, pair.RefreshToken, "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, pair.RefreshToken, next.RefreshToken)

	again, err := svc.RefreshTokens(ctx, pair.RefreshToken, "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, pair.RefreshToken, again.RefreshToken)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)
	svc, _ := newAuthService(t, st)

	_, err := svc.RefreshTokens(ctx, "not-a-token", "10.0.0.1")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshInactiveAccount(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	user := seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)
	svc, _ := newAuthService(t, st)

	pair, _, err := svc.Login(ctx, "kim@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, st.Users().UpdateStatus(ctx, user.ID, domain.UserStatusSuspended))

	_, err = svc.RefreshTokens(ctx, pair.RefreshToken, "10.0.0.1")
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)
	svc, _ := newAuthService(t, st)

	pair, _, err := svc.Login(ctx, "kim@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))

	// Logged-out token no longer refreshes.
	_, err = svc.RefreshTokens(ctx, pair.RefreshToken, "10.0.0.1")
	require.ErrorIs(t, err, ErrTokenReuseDetected)

	// Idempotent: repeating and unknown values are fine.
	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, svc.Logout(ctx, "never-issued"))
}

func TestLogoutAllDevices(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)
	svc, _ := newAuthService(t, st)
	svc.LogoutAllDevices = true

	tab1, _, err := svc.Login(ctx, "kim@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)
	tab2, _, err := svc.Login(ctx, "kim@example.com", testPassword, "10.0.0.2")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, tab1.RefreshToken))

	_, err = svc.RefreshTokens(ctx, tab2.RefreshToken, "10.0.0.2")
	require.ErrorIs(t, err, ErrTokenReuseDetected)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)
	svc, _ := newAuthService(t, st)
	mailer := svc.Mailer.(*captureMailer)

	// A live session that must die with the reset.
	pair, _, err := svc.Login(ctx, "kim@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "kim@example.com"))
	require.Len(t, mailer.tokens, 1)
	token := mailer.tokens[0]

	const newPassword = "an entirely new phrase"
	require.NoError(t, svc.ResetPassword(ctx, token, newPassword))

	// Single use: the second consume fails.
	err = svc.ResetPassword(ctx, token, "yet another phrase")
	require.ErrorIs(t, err, ErrAlreadyConsumed)

	// All refresh tokens were revoked by the reset.
	_, err = svc.RefreshTokens(ctx, pair.RefreshToken, "10.0.0.1")
	require.ErrorIs(t, err, ErrTokenReuseDetected)

	// Old password is gone, new one works.
	_, _, err = svc.Login(ctx, "kim@example.com", testPassword, "10.0.0.1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "kim@example.com", newPassword, "10.0.0.1")
	require.NoError(t, err)
}

func TestForgotPasswordEnumerationSafe(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)
	svc, _ := newAuthService(t, st)

	// Identical outcome for known and unknown addresses.
	require.NoError(t, svc.ForgotPassword(ctx, "kim@example.com"))
	require.NoError(t, svc.ForgotPassword(ctx, "ghost@example.com"))
}

func TestForgotPasswordInvalidatesPriorToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)
	svc, _ := newAuthService(t, st)
	mailer := svc.Mailer.(*captureMailer)

	require.NoError(t, svc.ForgotPassword(ctx, "kim@example.com"))
	require.NoError(t, svc.ForgotPassword(ctx, "kim@example.com"))
	require.Len(t, mailer.tokens, 2)

	// The first token died when the second was issued.
	err := svc.ResetPassword(ctx, mailer.tokens[0], "whatever phrase here")
	require.ErrorIs(t, err, ErrAlreadyConsumed)

	require.NoError(t, svc.ResetPassword(ctx, mailer.tokens[1], "whatever phrase here"))
}

func TestResetPasswordBadTokens(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc, _ := newAuthService(t, st)

	err := svc.ResetPassword(ctx, "never-issued", "whatever phrase here")
	require.ErrorIs(t, err, ErrInvalidToken)
}

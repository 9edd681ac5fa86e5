package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/risinghq/bmsauth/internal/auth/domain"
	"github.com/risinghq/bmsauth/internal/auth/store"
	"github.com/risinghq/bmsauth/pkg/cryptox"
	"github.com/risinghq/bmsauth/pkg/jwtx"
	"github.com/risinghq/bmsauth/pkg/slogx"
)

// AuthService is the orchestrator: it composes the codec, ledgers, and
// resolver into the login/refresh/logout/forgot/reset operations and
// enforces the failure policy at the module boundary.
type AuthService struct {
	Store    store.Store
	Signer   jwtx.Signer
	Refresh  *RefreshLedger
	Resets   *ResetLedger
	Resolver *Resolver
	Mailer   Mailer

	Issuer    string
	AccessTTL time.Duration

	// RotateOnRefresh controls whether a successful refresh mints a new
	// refresh token (rotation) or reuses the presented one.
	RotateOnRefresh bool

	// LogoutAllDevices makes logout revoke every session the user holds
	// instead of just the presented token.
	LogoutAllDevices bool
}

// Login validates email/password credentials and issues a token pair.
// Unknown email and wrong password are indistinguishable to the caller,
// and both burn the same argon2 cost so timing gives nothing away either.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*domain.TokenPair, domain.User, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cryptox.DummyVerify(password)
			return nil, domain.User{}, ErrInvalidCredentials
		}
		return nil, domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login failed", slog.String("user_id", user.ID))
		return nil, domain.User{}, ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, domain.User{}, ErrAccountInactive
	}

	pair, err := s.issuePair(ctx, user, ip, now)
	if err != nil {
		return nil, domain.User{}, err
	}

	l.Info("login succeeded", slog.String("user_id", user.ID))
	return pair, user, nil
}

// RefreshTokens redeems a refresh token and mints a new access token with
// a fresh permission snapshot. A terminal token being presented surfaces
// ErrTokenReuseDetected and, when reuse detection is on, has already had
// its whole rotation chain revoked by the ledger.
func (s *AuthService) RefreshTokens(ctx context.Context, presented, ip string) (*domain.TokenPair, error) {
	now := time.Now()

	var (
		rec    domain.RefreshToken
		opaque string
		err    error
	)
	if s.RotateOnRefresh {
		opaque, rec, err = s.Refresh.RedeemAndRotate(ctx, presented, ip, now)
	} else {
		rec, err = s.Refresh.Validate(ctx, presented, now)
		opaque = presented
	}
	if err != nil {
		return nil, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, ErrAccountInactive
	}

	access, err := s.signAccess(ctx, user, now)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: opaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// Logout revokes the presented refresh token. Idempotent: unknown or
// already-terminal tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, presented string) error {
	now := time.Now()

	if !s.LogoutAllDevices {
		return s.Refresh.Revoke(ctx, presented, now)
	}

	fp := cryptox.FingerprintToken(presented)
	rec, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.Refresh.RevokeAllForUser(ctx, rec.UserID, now)
}

// ForgotPassword issues a reset token and hands it to the mailer. The
// outcome is identical whether or not the email exists, so the endpoint
// cannot be used to enumerate accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	now := time.Now()
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := s.Resets.Issue(ctx, user.ID, now)
	if err != nil {
		return err
	}
	if err := s.Mailer.SendPasswordReset(ctx, email, token); err != nil {
		l.Error("reset mail delivery failed", slog.Any("error", err), slog.String("user_id", user.ID))
	}
	return nil
}

// ResetPassword consumes a reset token, stores the new password hash, and
// revokes every outstanding refresh token for the user in one
// transaction. A password change ends all existing sessions.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	now := time.Now()
	l := slogx.FromContext(ctx)

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	var userID string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		id, err := s.Resets.consume(ctx, tx, token, now)
		if err != nil {
			return err
		}
		userID = id

		if err := tx.Users().UpdatePasswordHash(ctx, id, newHash); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, id, now)
	})
	if err != nil {
		return err
	}

	l.Info("password reset completed, all sessions revoked", slog.String("user_id", userID))
	return nil
}

func (s *AuthService) issuePair(ctx context.Context, user domain.User, ip string, now time.Time) (*domain.TokenPair, error) {
	access, err := s.signAccess(ctx, user, now)
	if err != nil {
		return nil, err
	}

	refreshOpaque, _, err := s.Refresh.Issue(ctx, user.ID, ip, now)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}

func (s *AuthService) signAccess(ctx context.Context, user domain.User, now time.Time) (string, error) {
	role, perms, err := s.Resolver.Snapshot(ctx, user)
	if err != nil {
		return "", err
	}
	claims := jwtx.NewAccessClaims(user.ID, role.Name, perms, s.AccessTTL, s.Issuer, now)
	return s.Signer.Sign(claims)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

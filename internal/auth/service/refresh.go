package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/risinghq/bmsauth/internal/auth/domain"
	"github.com/risinghq/bmsauth/internal/auth/store"
	"github.com/risinghq/bmsauth/pkg/cryptox"
	"github.com/risinghq/bmsauth/pkg/idx"
	"github.com/risinghq/bmsauth/pkg/slogx"
)

// maxChainDepth bounds the rotation-chain walk. Chains are strictly
// forward-only so this is purely a corruption guard.
const maxChainDepth = 1024

// RefreshLedger owns the persisted refresh token records: issuance,
// redeem-and-rotate, revocation, and reuse handling. Only SHA-256
// fingerprints of the opaque values ever reach storage.
type RefreshLedger struct {
	Store store.Store
	TTL   time.Duration

	// ReuseDetection controls the side effect on a terminal-token
	// presentation: when enabled the whole rotation chain rooted at the
	// presented record is revoked before the error is surfaced.
	ReuseDetection bool
}

// Issue mints a new refresh token for the user and persists its record.
// The plaintext opaque value is returned exactly once.
func (l *RefreshLedger) Issue(ctx context.Context, userID, ip string, now time.Time) (string, domain.RefreshToken, error) {
	return l.issue(ctx, l.Store, userID, ip, now)
}

func (l *RefreshLedger) issue(ctx context.Context, s store.Store, userID, ip string, now time.Time) (string, domain.RefreshToken, error) {
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", domain.RefreshToken{}, err
	}

	rec := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(opaque),
		CreatedIP: ip,
		ExpiresAt: now.Add(l.TTL),
	}
	if err := s.RefreshTokens().CreateRefreshToken(ctx, rec); err != nil {
		return "", domain.RefreshToken{}, err
	}
	return opaque, rec, nil
}

// RedeemAndRotate validates the presented opaque value and atomically
// rotates it: the old record is claimed terminal and a successor record is
// inserted in the same transaction. Under concurrent redemption of the
// same value exactly one caller wins; the others observe the terminal
// state and get ErrTokenReuseDetected.
func (l *RefreshLedger) RedeemAndRotate(ctx context.Context, presented, ip string, now time.Time) (string, domain.RefreshToken, error) {
	fp := cryptox.FingerprintToken(presented)

	rec, err := l.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.RefreshToken{}, ErrInvalidToken
		}
		return "", domain.RefreshToken{}, err
	}

	// A terminal token being presented again is the theft/replay signal.
	if rec.Terminal(now) {
		return "", domain.RefreshToken{}, l.handleReuse(ctx, rec, now)
	}

	var (
		newOpaque string
		newRec    domain.RefreshToken
	)
	err = l.Store.WithTx(ctx, func(tx store.Tx) error {
		newID := idx.New().String()

		// Conditional claim: the database arbitrates concurrent
		// redemptions, only one UPDATE matches the active row.
		won, err := tx.RefreshTokens().ClaimRefreshToken(ctx, rec.ID, newID, now)
		if err != nil {
			return err
		}
		if !won {
			return ErrTokenReuseDetected
		}

		opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return err
		}
		newRec = domain.RefreshToken{
			ID:        newID,
			UserID:    rec.UserID,
			TokenHash: cryptox.FingerprintToken(opaque),
			CreatedIP: ip,
			ExpiresAt: now.Add(l.TTL),
		}
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, newRec); err != nil {
			return err
		}
		newOpaque = opaque
		return nil
	})
	if errors.Is(err, ErrTokenReuseDetected) {
		// Lost the race: by the time we claimed, another redemption had
		// already rotated the record. Same treatment as direct reuse.
		return "", domain.RefreshToken{}, l.handleReuse(ctx, rec, now)
	}
	if err != nil {
		return "", domain.RefreshToken{}, err
	}

	return newOpaque, newRec, nil
}

// Validate checks the presented value resolves to an active record without
// rotating it. Used when rotation-on-refresh is disabled.
func (l *RefreshLedger) Validate(ctx context.Context, presented string, now time.Time) (domain.RefreshToken, error) {
	fp := cryptox.FingerprintToken(presented)

	rec, err := l.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RefreshToken{}, ErrInvalidToken
		}
		return domain.RefreshToken{}, err
	}
	if rec.Terminal(now) {
		return domain.RefreshToken{}, l.handleReuse(ctx, rec, now)
	}
	return rec, nil
}

// handleReuse applies the reuse policy to a terminal record and returns
// the error the caller must surface. Chain revocation runs in its own
// transaction so it survives the caller's rollback.
func (l *RefreshLedger) handleReuse(ctx context.Context, rec domain.RefreshToken, now time.Time) error {
	if !l.ReuseDetection {
		return ErrTokenReuseDetected
	}

	l.log(ctx).Warn("refresh token reuse detected, revoking rotation chain",
		"token_id", rec.ID,
		"user_id", rec.UserID,
	)
	if err := l.RevokeChain(ctx, rec.ID, now); err != nil {
		l.log(ctx).Error("chain revocation failed", "error", err, "token_id", rec.ID)
	}
	return ErrTokenReuseDetected
}

// Revoke marks the record matching the presented value terminal.
// Idempotent: unknown or already-terminal values are not an error.
func (l *RefreshLedger) Revoke(ctx context.Context, presented string, now time.Time) error {
	fp := cryptox.FingerprintToken(presented)

	rec, err := l.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return l.Store.RefreshTokens().RevokeRefreshToken(ctx, rec.ID, now)
}

// RevokeAllForUser bulk-revokes every active token the user holds.
func (l *RefreshLedger) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	return l.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID, now)
}

// RevokeChain walks the replaced_by links forward from rootID and revokes
// every record on the way. The chain is audit lineage only, never used
// for authorization.
func (l *RefreshLedger) RevokeChain(ctx context.Context, rootID string, now time.Time) error {
	return l.Store.WithTx(ctx, func(tx store.Tx) error {
		id := rootID
		for depth := 0; id != "" && depth < maxChainDepth; depth++ {
			rec, err := tx.RefreshTokens().GetRefreshTokenByID(ctx, id)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil
				}
				return err
			}
			if err := tx.RefreshTokens().RevokeRefreshToken(ctx, rec.ID, now); err != nil {
				return err
			}
			id = rec.ReplacedBy
		}
		return nil
	})
}

func (l *RefreshLedger) log(ctx context.Context) *slog.Logger {
	return slogx.FromContext(ctx)
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/risinghq/bmsauth/internal/auth/domain"
	"github.com/risinghq/bmsauth/internal/auth/store"
	"github.com/risinghq/bmsauth/pkg/cryptox"
	"github.com/risinghq/bmsauth/pkg/idx"
)

// ResetLedger owns the single-use password reset tokens. Structurally a
// simpler sibling of the refresh ledger: no rotation chain, short expiry,
// consumed exactly once.
type ResetLedger struct {
	Store store.Store
	TTL   time.Duration
}

// Issue mints a reset token for the user. Any outstanding token for the
// same user is invalidated first so at most one live token exists.
func (l *ResetLedger) Issue(ctx context.Context, userID string, now time.Time) (string, error) {
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	rec := domain.PasswordResetToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(opaque),
		ExpiresAt: now.Add(l.TTL),
	}

	err = l.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.ResetTokens().InvalidateUserResetTokens(ctx, userID, now); err != nil {
			return err
		}
		return tx.ResetTokens().CreateResetToken(ctx, rec)
	})
	if err != nil {
		return "", err
	}
	return opaque, nil
}

// Consume atomically marks the presented token consumed and returns its
// owner. Two concurrent attempts with the same value resolve to a single
// winner; the loser gets ErrAlreadyConsumed.
func (l *ResetLedger) Consume(ctx context.Context, presented string, now time.Time) (string, error) {
	var userID string
	err := l.Store.WithTx(ctx, func(tx store.Tx) error {
		id, err := l.consume(ctx, tx, presented, now)
		if err != nil {
			return err
		}
		userID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

// consume runs the lookup-and-mark step against the given store, which
// lets the orchestrator fold it into a larger transaction.
func (l *ResetLedger) consume(ctx context.Context, s store.Store, presented string, now time.Time) (string, error) {
	fp := cryptox.FingerprintToken(presented)

	rec, err := s.ResetTokens().GetResetTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if rec.Consumed {
		return "", ErrAlreadyConsumed
	}
	if now.After(rec.ExpiresAt) {
		return "", ErrExpiredToken
	}

	won, err := s.ResetTokens().ConsumeResetToken(ctx, rec.ID, now)
	if err != nil {
		return "", err
	}
	if !won {
		return "", ErrAlreadyConsumed
	}
	return rec.UserID, nil
}

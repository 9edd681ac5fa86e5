package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/risinghq/bmsauth/internal/auth/domain"
)

func TestResetLedgerSingleUse(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	user := seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)

	ledger := &ResetLedger{Store: st, TTL: time.Hour}
	now := time.Now()

	opaque, err := ledger.Issue(ctx, user.ID, now)
	require.NoError(t, err)

	gotID, err := ledger.Consume(ctx, opaque, now)
	require.NoError(t, err)
	require.Equal(t, user.ID, gotID)

	_, err = ledger.Consume(ctx, opaque, now)
	require.ErrorIs(t, err, ErrAlreadyConsumed)
}

func TestResetLedgerUnknownToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	ledger := &ResetLedger{Store: st, TTL: time.Hour}
	_, err := ledger.Consume(ctx, "never-issued", time.Now())
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetLedgerExpiredToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	user := seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)

	ledger := &ResetLedger{Store: st, TTL: time.Minute}
	issuedAt := time.Now().Add(-time.Hour)

	opaque, err := ledger.Issue(ctx, user.ID, issuedAt)
	require.NoError(t, err)

	_, err = ledger.Consume(ctx, opaque, time.Now())
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestResetLedgerIssueInvalidatesPrior(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	user := seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)

	ledger := &ResetLedger{Store: st, TTL: time.Hour}
	now := time.Now()

	first, err := ledger.Issue(ctx, user.ID, now)
	require.NoError(t, err)
	second, err := ledger.Issue(ctx, user.ID, now)
	require.NoError(t, err)

	// At most one live token per user.
	_, err = ledger.Consume(ctx, first, now)
	require.ErrorIs(t, err, ErrAlreadyConsumed)

	gotID, err := ledger.Consume(ctx, second, now)
	require.NoError(t, err)
	require.Equal(t, user.ID, gotID)
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/risinghq/bmsauth/internal/auth/domain"
	"github.com/risinghq/bmsauth/pkg/cryptox"
	"github.com/risinghq/bmsauth/pkg/idx"
)

func TestRefreshLedgerIssue(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	user := seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)

	ledger := &RefreshLedger{Store: st, TTL: time.Hour, ReuseDetection: true}

	now := time.Now()
	opaque, rec, err := ledger.Issue(ctx, user.ID, "10.0.0.1", now)
	require.NoError(t, err)
	require.NotEmpty(t, opaque)
	require.Equal(t, user.ID, rec.UserID)

	// Only the fingerprint is stored, never the plaintext.
	stored, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(opaque))
	require.NoError(t, err)
	require.Equal(t, rec.ID, stored.ID)
	require.NotEqual(t, opaque, stored.TokenHash)
}

func TestConcurrentRedemptionExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	user := seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)

	ledger := &RefreshLedger{Store: st, TTL: time.Hour, ReuseDetection: true}
	opaque, _, err := ledger.Issue(ctx, user.ID, "10.0.0.1", time.Now())
	require.NoError(t, err)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		reuses    int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := ledger.RedeemAndRotate(ctx, opaque, "10.0.0.1", time.Now())

			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				successes++
			case ErrTokenReuseDetected:
				reuses++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes, "exactly one redemption must win")
	require.Equal(t, workers-1, reuses, "every loser must observe the terminal state")
}

func TestRotationIsPermanent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	user := seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)

	ledger := &RefreshLedger{Store: st, TTL: time.Hour, ReuseDetection: true}
	now := time.Now()

	opaque, rec, err := ledger.Issue(ctx, user.ID, "10.0.0.1", now)
	require.NoError(t, err)

	_, newRec, err := ledger.RedeemAndRotate(ctx, opaque, "10.0.0.1", now)
	require.NoError(t, err)

	// The old record is terminal and points at its successor.
	old, err := st.RefreshTokens().GetRefreshTokenByID(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, old.Revoked)
	require.NotNil(t, old.RevokedAt)
	require.Equal(t, newRec.ID, old.ReplacedBy)

	// A terminal record can never be claimed again.
	won, err := st.RefreshTokens().ClaimRefreshToken(ctx, rec.ID, idx.New().String(), now)
	require.NoError(t, err)
	require.False(t, won)
}

func TestRevokeChainWalksForward(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	user := seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)

	ledger := &RefreshLedger{Store: st, TTL: time.Hour, ReuseDetection: true}
	now := time.Now()

	// Build a chain of three rotations.
	opaque, root, err := ledger.Issue(ctx, user.ID, "10.0.0.1", now)
	require.NoError(t, err)
	opaque2, _, err := ledger.RedeemAndRotate(ctx, opaque, "10.0.0.1", now)
	require.NoError(t, err)
	_, tail, err := ledger.RedeemAndRotate(ctx, opaque2, "10.0.0.1", now)
	require.NoError(t, err)

	require.NoError(t, ledger.RevokeChain(ctx, root.ID, now))

	got, err := st.RefreshTokens().GetRefreshTokenByID(ctx, tail.ID)
	require.NoError(t, err)
	require.True(t, got.Revoked)
}

func TestExpiredTokenIsTerminal(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	user := seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)

	ledger := &RefreshLedger{Store: st, TTL: time.Millisecond, ReuseDetection: true}
	opaque, _, err := ledger.Issue(ctx, user.ID, "10.0.0.1", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, _, err = ledger.RedeemAndRotate(ctx, opaque, "10.0.0.1", time.Now())
	require.ErrorIs(t, err, ErrTokenReuseDetected)
}

func TestReuseDetectionDisabledSkipsChainRevocation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	role := seedRole(t, st, "staff", nil)
	user := seedUser(t, st, "kim@example.com", role.ID, domain.UserStatusActive, nil, nil)

	ledger := &RefreshLedger{Store: st, TTL: time.Hour, ReuseDetection: false}
	now := time.Now()

	opaque, _, err := ledger.Issue(ctx, user.ID, "10.0.0.1", now)
	require.NoError(t, err)
	opaque2, rec2, err := ledger.RedeemAndRotate(ctx, opaque, "10.0.0.1", now)
	require.NoError(t, err)

	// Replay is still rejected, but the successor survives.
	_, _, err = ledger.RedeemAndRotate(ctx, opaque, "10.0.0.1", now)
	require.ErrorIs(t, err, ErrTokenReuseDetected)

	got, err := st.RefreshTokens().GetRefreshTokenByID(ctx, rec2.ID)
	require.NoError(t, err)
	require.False(t, got.Revoked)

	_, _, err = ledger.RedeemAndRotate(ctx, opaque2, "10.0.0.1", now)
	require.NoError(t, err)
}

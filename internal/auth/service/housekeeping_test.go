package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/store"
	"github.com/srcvote/evote/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	acct := h.createStudent(t, "stu001", "ama@ug.edu.gh", "password123")
	fresh := h.createStudent(t, "stu002", "kofi@ug.edu.gh", "password123")

	require.NoError(t, h.store.RevokedTokens().Revoke(ctx, domain.RevokedToken{
		JTI: "old", AccountID: acct.ID, ExpiresAt: testEpoch.Add(time.Minute), RevokedAt: testEpoch,
	}))
	require.NoError(t, h.store.RevokedTokens().Revoke(ctx, domain.RevokedToken{
		JTI: "live", AccountID: acct.ID, ExpiresAt: testEpoch.Add(24 * time.Hour), RevokedAt: testEpoch,
	}))

	stale, err := h.login.Login(ctx, LoginRequest{Identifier: "stu001", Password: "password123"})
	require.NoError(t, err)

	h.clock.Advance(10 * time.Minute)
	live, err := h.login.Login(ctx, LoginRequest{Identifier: "stu002", Password: "password123"})
	require.NoError(t, err)

	hk := NewHousekeepingService(h.store, slog.New(slog.DiscardHandler), h.clock, time.Hour)
	hk.cleanup(ctx)

	require.Nil(t, h.reload(t, acct.ID).OTPTemp)
	require.NotNil(t, h.reload(t, fresh.ID).OTPTemp)

	_, err = h.store.LoginChallenges().GetChallenge(ctx, cryptox.FingerprintToken(stale.MFAToken))
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.store.LoginChallenges().GetChallenge(ctx, cryptox.FingerprintToken(live.MFAToken))
	require.NoError(t, err)

	revoked, err := h.store.RevokedTokens().IsRevoked(ctx, "old")
	require.NoError(t, err)
	require.False(t, revoked)

	revoked, err = h.store.RevokedTokens().IsRevoked(ctx, "live")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestHousekeepingStartStop(t *testing.T) {
	h := newHarness(t)

	hk := NewHousekeepingService(h.store, slog.New(slog.DiscardHandler), h.clock, 0)
	require.Equal(t, time.Hour, hk.Interval)

	hk.Start()
	hk.Stop()
}

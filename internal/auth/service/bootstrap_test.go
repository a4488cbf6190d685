package service

import (
	"context"
	"testing"

	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/store"
	"github.com/stretchr/testify/require"
)

func TestEnsureSuperAdmin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := &BootstrapService{Store: h.store, Accounts: h.accounts}

	ok, err := svc.IsBootstrapped(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	created, err := svc.EnsureSuperAdmin(ctx, domain.BootstrapData{Email: "Root@SRCVote.test", Password: "password123"})
	require.NoError(t, err)
	require.True(t, created)

	acct, err := h.store.Accounts().GetAccountByEmail(ctx, "root@srcvote.test")
	require.NoError(t, err)
	require.Equal(t, domain.KindSuperAdmin, acct.Kind)
	require.Equal(t, "Super Admin", acct.Name)
	require.True(t, acct.IsActive)
	require.True(t, acct.IsVerified)
	require.False(t, acct.TwoFAEnabled)
	require.Nil(t, acct.UniversityID)
	require.True(t, acct.NeedsTwoFactorSetup())

	created, err = svc.EnsureSuperAdmin(ctx, domain.BootstrapData{Email: "second@srcvote.test", Password: "password123"})
	require.NoError(t, err)
	require.False(t, created)

	// The bootstrapped account walks through setup on first login.
	res, err := h.login.Login(ctx, LoginRequest{Identifier: "root@srcvote.test", Password: "password123"})
	require.NoError(t, err)
	require.Equal(t, domain.StateOTPSetupPending, res.State)
	require.Equal(t, *acct.OTPSecret, res.ManualKey)
}

func TestEnsureSuperAdminIncomplete(t *testing.T) {
	h := newHarness(t)
	svc := &BootstrapService{Store: h.store, Accounts: h.accounts}

	_, err := svc.EnsureSuperAdmin(context.Background(), domain.BootstrapData{Email: "root@srcvote.test"})
	require.ErrorIs(t, err, ErrBootstrapIncomplete)
}

func TestEnsureSuperAdminEmailTaken(t *testing.T) {
	h := newHarness(t)
	svc := &BootstrapService{Store: h.store, Accounts: h.accounts}
	h.createStudent(t, "stu001", "root@srcvote.test", "password123")

	_, err := svc.EnsureSuperAdmin(context.Background(), domain.BootstrapData{Email: "root@srcvote.test", Password: "password123"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

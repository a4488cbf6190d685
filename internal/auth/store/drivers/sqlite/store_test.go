package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/store"
	"github.com/srcvote/evote/pkg/idx"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedStudent(t *testing.T, s *Store, identifier, email string) domain.Account {
	t.Helper()
	a := domain.Account{
		ID:           idx.New().String(),
		Kind:         domain.KindStudent,
		Identifier:   identifier,
		Email:        email,
		Name:         "Ama Mensah",
		UniversityID: ptr("ug"),
		PasswordHash: ptr("$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA"),
		OTPSecret:    ptr("JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"),
	}
	require.NoError(t, s.Accounts().CreateAccount(context.Background(), a))
	got, err := s.Accounts().GetAccountByID(context.Background(), a.ID)
	require.NoError(t, err)
	return got
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestAccountLookups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedStudent(t, s, "STU001", "Ama@UG.edu.gh")

	require.Equal(t, "stu001", a.Identifier)
	require.Equal(t, "ama@ug.edu.gh", a.Email)
	require.Equal(t, int64(0), a.Version)
	require.False(t, a.IsActive)
	require.Nil(t, a.OTPTemp)
	require.Nil(t, a.OTPExpiryTemp)

	byIdent, err := s.Accounts().GetAccountByIdentifier(ctx, " stu001 ")
	require.NoError(t, err)
	require.Equal(t, a.ID, byIdent.ID)

	byEmail, err := s.Accounts().GetAccountByEmail(ctx, "AMA@ug.edu.gh")
	require.NoError(t, err)
	require.Equal(t, a.ID, byEmail.ID)
	require.Equal(t, "ug", byEmail.UniversityRef())

	_, err = s.Accounts().GetAccountByIdentifier(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateAccountConstraints(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedStudent(t, s, "STU001", "ama@ug.edu.gh")

	t.Run("duplicate identifier", func(t *testing.T) {
		err := s.Accounts().CreateAccount(ctx, domain.Account{
			ID: idx.New().String(), Kind: domain.KindStudent, Identifier: "stu001", Email: "other@ug.edu.gh",
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("super admin cannot belong to a university", func(t *testing.T) {
		err := s.Accounts().CreateAccount(ctx, domain.Account{
			ID: idx.New().String(), Kind: domain.KindSuperAdmin, Identifier: "root@srcvote.org",
			Email: "root@srcvote.org", UniversityID: ptr("ug"),
		})
		require.Error(t, err)
	})

	t.Run("null password hash stays null", func(t *testing.T) {
		id := idx.New().String()
		require.NoError(t, s.Accounts().CreateAccount(ctx, domain.Account{
			ID: id, Kind: domain.KindStudent, Identifier: "stu002", Email: "kofi@ug.edu.gh", UniversityID: ptr("ug"),
		}))
		got, err := s.Accounts().GetAccountByID(ctx, id)
		require.NoError(t, err)
		require.Nil(t, got.PasswordHash)
	})
}

func TestTempOTPCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedStudent(t, s, "STU001", "ama@ug.edu.gh")
	expiry := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)

	require.NoError(t, s.Accounts().SetTempOTP(ctx, a.ID, a.Version, "123456", expiry))

	got, err := s.Accounts().GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a.Version+1, got.Version)
	require.Equal(t, "123456", *got.OTPTemp)
	require.True(t, expiry.Equal(*got.OTPExpiryTemp))

	t.Run("stale version conflicts", func(t *testing.T) {
		err := s.Accounts().SetTempOTP(ctx, a.ID, a.Version, "654321", expiry)
		require.ErrorIs(t, err, store.ErrConflict)

		err = s.Accounts().ClearTempOTP(ctx, a.ID, a.Version)
		require.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		err := s.Accounts().ClearTempOTP(ctx, "missing", 0)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("only one of two racing clears wins", func(t *testing.T) {
		first := s.Accounts().ClearTempOTP(ctx, got.ID, got.Version)
		second := s.Accounts().ClearTempOTP(ctx, got.ID, got.Version)
		require.NoError(t, first)
		require.ErrorIs(t, second, store.ErrConflict)

		cleared, err := s.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		require.Nil(t, cleared.OTPTemp)
		require.Nil(t, cleared.OTPExpiryTemp)
	})
}

func TestTempOTPPairConstraint(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedStudent(t, s, "STU001", "ama@ug.edu.gh")

	_, err := s.db.ExecContext(ctx, `UPDATE accounts SET otp_temp = '123456' WHERE id = ?`, a.ID)
	require.Error(t, err)
}

func TestTwoFactorFlags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedStudent(t, s, "STU001", "ama@ug.edu.gh")
	accounts := s.Accounts()

	require.NoError(t, accounts.EnableTwoFactor(ctx, a.ID, 0))
	require.NoError(t, accounts.MarkVerified(ctx, a.ID, 1))

	got, err := accounts.GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, got.TwoFAEnabled)
	require.True(t, got.IsActive)
	require.True(t, got.IsVerified)

	require.NoError(t, accounts.DisableTwoFactor(ctx, a.ID, 2))
	got, err = accounts.GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, got.TwoFAEnabled)
	require.Nil(t, got.OTPSecret)

	require.NoError(t, accounts.SetOTPSecret(ctx, a.ID, 3, "KRSXG5CTMVRXEZLUKRSXG5CTMVRXEZLU"))
	nb := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, accounts.BumpTokensNotBefore(ctx, a.ID, 4, nb))
	require.NoError(t, accounts.UpdatePasswordHash(ctx, a.ID, 5, nil))

	got, err = accounts.GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(6), got.Version)
	require.Equal(t, "KRSXG5CTMVRXEZLUKRSXG5CTMVRXEZLU", *got.OTPSecret)
	require.True(t, nb.Equal(*got.TokensNotBefore))
	require.Nil(t, got.PasswordHash)
}

func TestPurgeExpiredTempOTP(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	stale := seedStudent(t, s, "STU001", "ama@ug.edu.gh")
	fresh := seedStudent(t, s, "STU002", "kofi@ug.edu.gh")
	require.NoError(t, s.Accounts().SetTempOTP(ctx, stale.ID, 0, "111111", now.Add(-time.Second)))
	require.NoError(t, s.Accounts().SetTempOTP(ctx, fresh.ID, 0, "222222", now.Add(time.Minute)))

	n, err := s.Accounts().PurgeExpiredTempOTP(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := s.Accounts().GetAccountByID(ctx, stale.ID)
	require.NoError(t, err)
	require.Nil(t, got.OTPTemp)

	got, err = s.Accounts().GetAccountByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, "222222", *got.OTPTemp)
}

func TestHasKind(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ok, err := s.Accounts().HasKind(ctx, domain.KindStudent)
	require.NoError(t, err)
	require.False(t, ok)

	seedStudent(t, s, "STU001", "ama@ug.edu.gh")
	ok, err = s.Accounts().HasKind(ctx, domain.KindStudent)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRevokedTokens(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedStudent(t, s, "STU001", "ama@ug.edu.gh")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := s.RevokedTokens()

	entry := domain.RevokedToken{JTI: "jti-1", AccountID: a.ID, ExpiresAt: now.Add(time.Hour), RevokedAt: now}
	require.NoError(t, repo.Revoke(ctx, entry))
	require.NoError(t, repo.Revoke(ctx, entry), "revoking twice is not an error")

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = repo.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	require.False(t, revoked)

	n, err := repo.PurgeExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedStudent(t, s, "STU001", "ama@ug.edu.gh")
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Accounts().EnableTwoFactor(ctx, a.ID, a.Version))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Accounts().GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, got.TwoFAEnabled, "rolled back")
	require.Equal(t, a.Version, got.Version)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().DisableTwoFactor(ctx, a.ID, a.Version); err != nil {
			return err
		}
		return tx.Accounts().BumpTokensNotBefore(ctx, a.ID, a.Version+1, time.Now())
	})
	require.NoError(t, err)

	got, err = s.Accounts().GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a.Version+2, got.Version)
	require.NotNil(t, got.TokensNotBefore)

	require.ErrorIs(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.WithTx(ctx, func(store.Tx) error { return nil })
	}), sql.ErrTxDone)
}

func TestLoginChallenges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedStudent(t, s, "stu001", "ama@ug.edu.gh")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c := domain.LoginChallenge{
		ID:        "fp-1",
		AccountID: a.ID,
		State:     domain.StateOTPChallengePending,
		Method:    domain.MethodEmail,
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
	require.NoError(t, s.LoginChallenges().CreateChallenge(ctx, c))

	got, err := s.LoginChallenges().GetChallenge(ctx, "fp-1")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.AccountID)
	require.Equal(t, domain.StateOTPChallengePending, got.State)
	require.Equal(t, domain.MethodEmail, got.Method)
	require.Zero(t, got.Attempts)
	require.True(t, got.ExpiresAt.Equal(now.Add(10*time.Minute)))

	n, err := s.LoginChallenges().IncrementAttempts(ctx, "fp-1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// A new login replaces the account's earlier challenge and its count.
	c.ID, c.State, c.Method = "fp-2", domain.StateOTPSetupPending, domain.MethodAuthenticator
	require.NoError(t, s.LoginChallenges().CreateChallenge(ctx, c))
	_, err = s.LoginChallenges().GetChallenge(ctx, "fp-1")
	require.ErrorIs(t, err, store.ErrNotFound)
	got, err = s.LoginChallenges().GetChallenge(ctx, "fp-2")
	require.NoError(t, err)
	require.Equal(t, domain.StateOTPSetupPending, got.State)
	require.Zero(t, got.Attempts)

	require.NoError(t, s.LoginChallenges().DeleteChallenge(ctx, "fp-2"))
	require.ErrorIs(t, s.LoginChallenges().DeleteChallenge(ctx, "fp-2"), store.ErrNotFound)
	_, err = s.LoginChallenges().IncrementAttempts(ctx, "fp-2")
	require.ErrorIs(t, err, store.ErrNotFound)

	c.ID = "fp-3"
	require.NoError(t, s.LoginChallenges().CreateChallenge(ctx, c))
	purged, err := s.LoginChallenges().PurgeExpired(ctx, now.Add(9*time.Minute))
	require.NoError(t, err)
	require.Zero(t, purged)
	purged, err = s.LoginChallenges().PurgeExpired(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)
}

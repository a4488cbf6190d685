package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/metrics"
	"github.com/srcvote/evote/internal/auth/notify"
	"github.com/srcvote/evote/internal/auth/store/drivers/sqlite"
	"github.com/srcvote/evote/pkg/clock"
	"github.com/srcvote/evote/pkg/cryptox"
	"github.com/srcvote/evote/pkg/idx"
	"github.com/srcvote/evote/pkg/jwtx"
	"github.com/srcvote/evote/pkg/otpx"
	"github.com/srcvote/evote/pkg/validatorx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://auth.srcvote.test"

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "evote-service-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type harness struct {
	store    *sqlite.Store
	clock    *clock.Fake
	notifier *notify.Recorder
	keys     *jwtx.KeyManager
	accounts *AccountService
	login    *LoginService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	clk := clock.NewFake(testEpoch)
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Verify: jwtx.VerifyOptions{Issuer: testIssuer, Now: clk.Now},
	})
	require.NoError(t, err)

	rec := &notify.Recorder{}
	v := validatorx.MustNew()

	h := &harness{
		store:    s,
		clock:    clk,
		notifier: rec,
		keys:     km,
		accounts: &AccountService{Store: s, Clock: clk, Validator: v},
	}
	h.login = &LoginService{
		Store:         s,
		Authenticator: &AuthenticatorChannel{Store: s, Issuer: "SRC Voting"},
		Email:         &EmailChannel{Store: s, Notifier: rec, Clock: clk},
		Sessions: &SessionIssuer{
			Signer:   km.Signer(),
			Verifier: km.Verifier(),
			Store:    s,
			Clock:    clk,
			Issuer:   testIssuer,
		},
		Limiter:   NewAttemptLimiter(DefaultOTPMaxAttempts, DefaultOTPAttemptWindow),
		Notifier:  rec,
		Clock:     clk,
		Metrics:   metrics.New(prometheus.NewRegistry()),
		Validator: v,
	}
	return h
}

func (h *harness) createStudent(t *testing.T, identifier, email, password string) domain.Account {
	t.Helper()
	acct, err := h.accounts.Create(context.Background(), NewAccount{
		Kind:         domain.KindStudent,
		Identifier:   identifier,
		Email:        email,
		Name:         "Ama Mensah",
		UniversityID: "ug",
		Password:     &password,
	})
	require.NoError(t, err)
	return acct
}

// createSuperAdmin inserts a super admin that has never set up two-factor
// and has no TOTP secret yet.
func (h *harness) createSuperAdmin(t *testing.T, email, password string) domain.Account {
	t.Helper()
	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	acct := domain.Account{
		ID:           idx.NewAt(h.clock.Now()).String(),
		Kind:         domain.KindSuperAdmin,
		Identifier:   email,
		Email:        email,
		Name:         "Root",
		PasswordHash: &hash,
		IsActive:     true,
		IsVerified:   true,
		CreatedAt:    h.clock.Now(),
		UpdatedAt:    h.clock.Now(),
	}
	require.NoError(t, h.store.Accounts().CreateAccount(context.Background(), acct))
	return h.reload(t, acct.ID)
}

func (h *harness) reload(t *testing.T, id string) domain.Account {
	t.Helper()
	acct, err := h.store.Accounts().GetAccountByID(context.Background(), id)
	require.NoError(t, err)
	return acct
}

// enrolSuperAdmin walks a fresh super admin through authenticator setup.
func (h *harness) enrolSuperAdmin(t *testing.T, email, password string) (domain.Account, string) {
	t.Helper()
	ctx := context.Background()
	acct := h.createSuperAdmin(t, email, password)

	res, err := h.login.Login(ctx, LoginRequest{Identifier: email, Password: password})
	require.NoError(t, err)
	require.Equal(t, domain.StateOTPSetupPending, res.State)

	code := totpCode(t, res.ManualKey, h.clock.Now())
	_, err = h.login.VerifyOTP(ctx, VerifyOTPRequest{
		Identifier: email, MFAToken: res.MFAToken, Code: code, Method: "authenticator", IsSetup: true,
	})
	require.NoError(t, err)
	return h.reload(t, acct.ID), res.ManualKey
}

func totpCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := otpx.Code(secret, at)
	require.NoError(t, err)
	return code
}

package app

import (
	"log/slog"
	"testing"
	"time"

	"github.com/srcvote/evote/internal/auth/notify"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	require.Equal(t, "srcvote-auth", cfg.Issuer)
	require.Equal(t, "SRC Voting", cfg.TOTPIssuer)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 5*time.Minute, cfg.EmailOTPTTL)
	require.Equal(t, 5, cfg.OTPMaxAttempts)
	require.Equal(t, 5*time.Minute, cfg.OTPAttemptWindow)
	require.Equal(t, 10*time.Minute, cfg.LoginTTL)
	require.Equal(t, 5, cfg.LoginAttempts)
	require.Equal(t, "EdDSA", cfg.Algorithm)
	require.Equal(t, "log", cfg.Notifier)
	require.Equal(t, 8080, cfg.Port)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("VOTE_ISSUER", "https://auth.example.edu")
	t.Setenv("VOTE_EMAIL_OTP_TTL", "10m")
	t.Setenv("VOTE_OTP_MAX_ATTEMPTS", "3")
	t.Setenv("VOTE_JWT_ALGORITHM", "HS256")
	t.Setenv("VOTE_SENDGRID_SANDBOX", "true")
	t.Setenv("HOUSEKEEPING_INTERVAL", "30")
	t.Setenv("PORT", "not-a-number")

	cfg := LoadConfig()

	require.Equal(t, "https://auth.example.edu", cfg.Issuer)
	require.Equal(t, 10*time.Minute, cfg.EmailOTPTTL)
	require.Equal(t, 3, cfg.OTPMaxAttempts)
	require.Equal(t, "HS256", cfg.Algorithm)
	require.True(t, cfg.SendGridSandbox)
	require.Equal(t, 30*time.Minute, cfg.HousekeepingInterval)
	require.Equal(t, 8080, cfg.Port)
}

func TestInitNotifier(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	n, err := InitNotifier(Config{Notifier: "log"}, logger)
	require.NoError(t, err)
	require.IsType(t, notify.Log{}, n)

	n, err = InitNotifier(Config{Notifier: "smtp", SMTPHost: "mail.example.edu", SMTPPort: 587, MailFrom: "noreply@example.edu"}, logger)
	require.NoError(t, err)
	require.IsType(t, &notify.SMTP{}, n)

	_, err = InitNotifier(Config{Notifier: "smtp", MailFrom: "noreply@example.edu"}, logger)
	require.ErrorIs(t, err, notify.ErrSMTPHostPortRequired)

	n, err = InitNotifier(Config{Notifier: "sendgrid", SendGridAPIKey: "SG.test", MailFrom: "noreply@example.edu"}, logger)
	require.NoError(t, err)
	require.IsType(t, &notify.SendGrid{}, n)

	_, err = InitNotifier(Config{Notifier: "sendgrid"}, logger)
	require.ErrorIs(t, err, notify.ErrSendGridAPIKeyRequired)

	_, err = InitNotifier(Config{Notifier: "pigeon"}, logger)
	require.Error(t, err)
}

func TestInitAuthKeys(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	file := t.TempDir() + "/jwt.key"

	km, err := InitAuthKeys(Config{Issuer: "srcvote-auth", Algorithm: "EdDSA", JWTSecretFile: file}, logger)
	require.NoError(t, err)
	require.True(t, km.IsReady())

	again, err := InitAuthKeys(Config{Issuer: "srcvote-auth", Algorithm: "EdDSA", JWTSecretFile: file}, logger)
	require.NoError(t, err)
	require.Equal(t, km.Signer().KID(), again.Signer().KID())

	_, err = InitAuthKeys(Config{Issuer: "srcvote-auth", Algorithm: "RS256"}, logger)
	require.Error(t, err)
}

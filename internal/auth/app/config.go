package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer     string        // Optional: issuer claim for tokens (default: srcvote-auth)
	TOTPIssuer string        // Optional: label shown in authenticator apps (default: SRC Voting)
	AccessTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL time.Duration // Optional: refresh token lifetime (default: 7d)

	EmailOTPTTL      time.Duration // Optional: emailed code lifetime (default: 5m)
	OTPMaxAttempts   int           // Optional: OTP verifications per account per window (default: 5, 0 disables)
	OTPAttemptWindow time.Duration // Optional: window for OTPMaxAttempts (default: 5m)
	LoginTTL         time.Duration // Optional: time between password and code (default: 10m)
	LoginAttempts    int           // Optional: wrong codes allowed per login (default: 5)

	Algorithm     string // Optional: JWT signing algorithm (EdDSA, HS256) (default: EdDSA)
	JWTSecretFile string // Optional: key material file; empty keeps keys in memory only

	Notifier        string // Optional: email driver (log, smtp, sendgrid) (default: log)
	MailFrom        string // Required for smtp and sendgrid
	MailFromName    string // Optional: display name for sendgrid (default: SRC Voting)
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SendGridAPIKey  string
	SendGridSandbox bool

	BootstrapEmail    string // Optional: super admin created at startup when none exists
	BootstrapPassword string

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile           string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:     getEnvOrDefault("VOTE_ISSUER", "srcvote-auth"),
		TOTPIssuer: getEnvOrDefault("VOTE_TOTP_ISSUER", "SRC Voting"),
		AccessTTL:  getEnvDurationOrDefault("VOTE_ACCESS_TTL", 15*time.Minute),
		RefreshTTL: getEnvDurationOrDefault("VOTE_REFRESH_TTL", 7*24*time.Hour),

		EmailOTPTTL:      getEnvDurationOrDefault("VOTE_EMAIL_OTP_TTL", 5*time.Minute),
		OTPMaxAttempts:   getEnvIntOrDefault("VOTE_OTP_MAX_ATTEMPTS", 5),
		OTPAttemptWindow: getEnvDurationOrDefault("VOTE_OTP_ATTEMPT_WINDOW", 5*time.Minute),
		LoginTTL:         getEnvDurationOrDefault("VOTE_LOGIN_TTL", 10*time.Minute),
		LoginAttempts:    getEnvIntOrDefault("VOTE_LOGIN_ATTEMPTS", 5),

		Algorithm:     getEnvOrDefault("VOTE_JWT_ALGORITHM", "EdDSA"),
		JWTSecretFile: os.Getenv("VOTE_JWT_SECRET_FILE"),

		Notifier:        getEnvOrDefault("VOTE_NOTIFIER", "log"),
		MailFrom:        os.Getenv("VOTE_MAIL_FROM"),
		MailFromName:    getEnvOrDefault("VOTE_MAIL_FROM_NAME", "SRC Voting"),
		SMTPHost:        os.Getenv("VOTE_SMTP_HOST"),
		SMTPPort:        getEnvIntOrDefault("VOTE_SMTP_PORT", 587),
		SMTPUsername:    os.Getenv("VOTE_SMTP_USERNAME"),
		SMTPPassword:    os.Getenv("VOTE_SMTP_PASSWORD"),
		SendGridAPIKey:  os.Getenv("VOTE_SENDGRID_API_KEY"),
		SendGridSandbox: getEnvBoolOrDefault("VOTE_SENDGRID_SANDBOX", false),

		BootstrapEmail:    os.Getenv("VOTE_BOOTSTRAP_SUPERADMIN_EMAIL"),
		BootstrapPassword: os.Getenv("VOTE_BOOTSTRAP_SUPERADMIN_PASSWORD"),

		DatabaseFile:         getEnvOrDefault("VOTE_DATABASE_FILE", "auth.db"),
		PepperFile:           getEnvOrDefault("VOTE_PEPPER_FILE", "pepper"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

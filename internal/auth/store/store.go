package store

import (
	"context"
	"errors"
	"time"

	"github.com/srcvote/evote/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict means a compare-and-set lost: the row's version moved on
	// since the caller read it.
	ErrConflict = errors.New("store: version conflict")
)

// Store is the root data access interface. Concrete drivers implement this
// and expose sub-repositories so transactions cannot nest by accident.
type Store interface {
	Accounts() Accounts
	RevokedTokens() RevokedTokens
	LoginChallenges() LoginChallenges

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing if fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Accounts is the user directory. Every mutation is a compare-and-set on
// (id, version): it returns ErrConflict when the version has moved and
// ErrNotFound when the id does not exist. A successful mutation leaves the
// row at version+1.
type Accounts interface {
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByIdentifier matches case-insensitively.
	GetAccountByIdentifier(ctx context.Context, identifier string) (domain.Account, error)

	// GetAccountByEmail matches case-insensitively.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// CreateAccount inserts a new account (id is provided by app via ULID).
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdatePasswordHash stores a new hash. nil makes the password unusable.
	UpdatePasswordHash(ctx context.Context, id string, version int64, hash *string) error

	SetOTPSecret(ctx context.Context, id string, version int64, secret string) error

	// SetTempOTP overwrites any earlier emailed code.
	SetTempOTP(ctx context.Context, id string, version int64, code string, expiry time.Time) error
	ClearTempOTP(ctx context.Context, id string, version int64) error

	EnableTwoFactor(ctx context.Context, id string, version int64) error

	// DisableTwoFactor clears both two_fa_enabled and otp_secret.
	DisableTwoFactor(ctx context.Context, id string, version int64) error

	// MarkVerified sets is_active and is_verified.
	MarkVerified(ctx context.Context, id string, version int64) error

	// BumpTokensNotBefore rejects every token issued before t.
	BumpTokensNotBefore(ctx context.Context, id string, version int64, t time.Time) error

	// PurgeExpiredTempOTP clears emailed codes whose expiry is at or before now.
	PurgeExpiredTempOTP(ctx context.Context, now time.Time) (int64, error)

	// HasKind reports whether any account of kind k exists.
	HasKind(ctx context.Context, k domain.Kind) (bool, error)
}

// RevokedTokens is the refresh-token denylist keyed by jti.
type RevokedTokens interface {
	// Revoke is idempotent: revoking an already revoked jti is not an error.
	Revoke(ctx context.Context, t domain.RevokedToken) error

	IsRevoked(ctx context.Context, jti string) (bool, error)

	// PurgeExpired drops entries whose token has expired anyway.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// LoginChallenges holds logins between the password check and the OTP step,
// keyed by the fingerprint of the MFA token. An account has at most one.
type LoginChallenges interface {
	// CreateChallenge replaces any earlier challenge of the same account.
	CreateChallenge(ctx context.Context, c domain.LoginChallenge) error

	GetChallenge(ctx context.Context, id string) (domain.LoginChallenge, error)

	// IncrementAttempts records a wrong answer and returns the new count.
	IncrementAttempts(ctx context.Context, id string) (int, error)

	// DeleteChallenge returns ErrNotFound if the challenge is already gone,
	// so two concurrent answers cannot both consume it.
	DeleteChallenge(ctx context.Context, id string) error

	// PurgeExpired drops challenges whose expiry is at or before now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

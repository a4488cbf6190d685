package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/store"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, kind, identifier, email, name, university_id, password_hash,
	is_active, is_verified, otp_secret, otp_temp, otp_expiry_temp, two_fa_enabled,
	version, tokens_not_before, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a            domain.Account
		kind         string
		universityID sql.NullString
		passwordHash sql.NullString
		otpSecret    sql.NullString
		otpTemp      sql.NullString
		otpExpiry    sql.NullInt64
		notBefore    sql.NullInt64
		createdAt    int64
		updatedAt    int64
	)
	err := row.Scan(
		&a.ID, &kind, &a.Identifier, &a.Email, &a.Name, &universityID, &passwordHash,
		&a.IsActive, &a.IsVerified, &otpSecret, &otpTemp, &otpExpiry, &a.TwoFAEnabled,
		&a.Version, &notBefore, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	a.Kind = domain.Kind(kind)
	a.UniversityID = mapNullStringPtr(universityID)
	a.PasswordHash = mapNullStringPtr(passwordHash)
	a.OTPSecret = mapNullStringPtr(otpSecret)
	a.OTPTemp = mapNullStringPtr(otpTemp)
	a.OTPExpiryTemp = mapNullMillisPtr(otpExpiry)
	a.TokensNotBefore = mapNullMillisPtr(notBefore)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
}

func (r *accountsRepo) GetAccountByIdentifier(ctx context.Context, identifier string) (domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE identifier = ?`, normalize(identifier)))
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, normalize(email)))
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (
			id, kind, identifier, email, name, university_id, password_hash,
			is_active, is_verified, otp_secret, two_fa_enabled,
			version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		a.ID, string(a.Kind), normalize(a.Identifier), normalize(a.Email), a.Name,
		mapOptionalString(a.UniversityID), mapOptionalString(a.PasswordHash),
		a.IsActive, a.IsVerified, mapOptionalString(a.OTPSecret), a.TwoFAEnabled,
		toMillis(created), toMillis(created),
	)
	return mapConstraint(err)
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, id string, version int64, hash *string) error {
	return r.compareAndSet(ctx, id, version, `password_hash = ?`, mapOptionalString(hash))
}

func (r *accountsRepo) SetOTPSecret(ctx context.Context, id string, version int64, secret string) error {
	return r.compareAndSet(ctx, id, version, `otp_secret = ?`, secret)
}

func (r *accountsRepo) SetTempOTP(ctx context.Context, id string, version int64, code string, expiry time.Time) error {
	return r.compareAndSet(ctx, id, version,
		`otp_temp = ?, otp_expiry_temp = ?`, code, toMillis(expiry))
}

func (r *accountsRepo) ClearTempOTP(ctx context.Context, id string, version int64) error {
	return r.compareAndSet(ctx, id, version, `otp_temp = NULL, otp_expiry_temp = NULL`)
}

func (r *accountsRepo) EnableTwoFactor(ctx context.Context, id string, version int64) error {
	return r.compareAndSet(ctx, id, version, `two_fa_enabled = 1`)
}

func (r *accountsRepo) DisableTwoFactor(ctx context.Context, id string, version int64) error {
	return r.compareAndSet(ctx, id, version, `two_fa_enabled = 0, otp_secret = NULL`)
}

func (r *accountsRepo) MarkVerified(ctx context.Context, id string, version int64) error {
	return r.compareAndSet(ctx, id, version, `is_active = 1, is_verified = 1`)
}

func (r *accountsRepo) BumpTokensNotBefore(ctx context.Context, id string, version int64, t time.Time) error {
	return r.compareAndSet(ctx, id, version, `tokens_not_before = ?`, toMillis(t))
}

func (r *accountsRepo) PurgeExpiredTempOTP(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET otp_temp = NULL, otp_expiry_temp = NULL, version = version + 1, updated_at = ?
		WHERE otp_expiry_temp IS NOT NULL AND otp_expiry_temp <= ?`,
		toMillis(time.Now()), toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *accountsRepo) HasKind(ctx context.Context, k domain.Kind) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE kind = ?)`, string(k)).Scan(&exists)
	return exists, err
}

// compareAndSet applies set to the row only if it is still at version.
func (r *accountsRepo) compareAndSet(ctx context.Context, id string, version int64, set string, args ...any) error {
	args = append(args, toMillis(time.Now()), id, version)
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET `+set+`, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrConflict
}

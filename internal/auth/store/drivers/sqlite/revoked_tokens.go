package sqlite

import (
	"context"
	"time"

	"github.com/srcvote/evote/internal/auth/domain"
)

type revokedTokensRepo struct {
	db dbtx
}

func (r *revokedTokensRepo) Revoke(ctx context.Context, t domain.RevokedToken) error {
	revokedAt := t.RevokedAt
	if revokedAt.IsZero() {
		revokedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, account_id, expires_at, revoked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (jti) DO NOTHING`,
		t.JTI, t.AccountID, toMillis(t.ExpiresAt), toMillis(revokedAt))
	return err
}

func (r *revokedTokensRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti).Scan(&revoked)
	return revoked, err
}

func (r *revokedTokensRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

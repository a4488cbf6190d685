package sqlite

import (
	"context"
	"time"

	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/store"
)

type loginChallengesRepo struct {
	db dbtx
}

func (r *loginChallengesRepo) CreateChallenge(ctx context.Context, c domain.LoginChallenge) error {
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_challenges (id, account_id, state, method, attempts, created_at, expires_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			id = excluded.id,
			state = excluded.state,
			method = excluded.method,
			attempts = 0,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		c.ID, c.AccountID, c.State.String(), string(c.Method), toMillis(created), toMillis(c.ExpiresAt))
	return mapConstraint(err)
}

func (r *loginChallengesRepo) GetChallenge(ctx context.Context, id string) (domain.LoginChallenge, error) {
	var (
		c         domain.LoginChallenge
		state     string
		method    string
		createdAt int64
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, state, method, attempts, created_at, expires_at
		FROM login_challenges WHERE id = ?`, id).
		Scan(&c.ID, &c.AccountID, &state, &method, &c.Attempts, &createdAt, &expiresAt)
	if err != nil {
		return domain.LoginChallenge{}, mapNotFound(err)
	}

	c.State, err = domain.ParseLoginState(state)
	if err != nil {
		return domain.LoginChallenge{}, err
	}
	c.Method = domain.OTPMethod(method)
	c.CreatedAt = fromMillis(createdAt)
	c.ExpiresAt = fromMillis(expiresAt)
	return c, nil
}

func (r *loginChallengesRepo) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`UPDATE login_challenges SET attempts = attempts + 1 WHERE id = ? RETURNING attempts`, id).
		Scan(&attempts)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

func (r *loginChallengesRepo) DeleteChallenge(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM login_challenges WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *loginChallengesRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM login_challenges WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

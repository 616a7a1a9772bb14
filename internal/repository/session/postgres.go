package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const selectColumns = `id::text, token, user_id, username, email, role, upstream_token, created_at, expires_at`

func (r *postgresRepo) Create(ctx context.Context, sess domain.Session) error {
	const q = `
INSERT INTO sessions (id, token, user_id, username, email, role, upstream_token, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.pool.Exec(ctx, q, sess.ID, sess.Token, sess.UserID, sess.Username, sess.Email, string(sess.Role), sess.UpstreamToken, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *postgresRepo) Upsert(ctx context.Context, sess domain.Session) (*domain.Session, error) {
	const q = `
INSERT INTO sessions (id, token, user_id, username, email, role, upstream_token, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (token) DO UPDATE
SET user_id = EXCLUDED.user_id,
    username = EXCLUDED.username,
    email = EXCLUDED.email,
    role = EXCLUDED.role,
    upstream_token = EXCLUDED.upstream_token,
    expires_at = EXCLUDED.expires_at
RETURNING ` + selectColumns
	row := r.pool.QueryRow(ctx, q, sess.ID, sess.Token, sess.UserID, sess.Username, sess.Email, string(sess.Role), sess.UpstreamToken, sess.CreatedAt, sess.ExpiresAt)
	return scanSession(row)
}

func (r *postgresRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	q := `SELECT ` + selectColumns + ` FROM sessions WHERE token = $1 LIMIT 1`
	out, err := scanSession(r.pool.QueryRow(ctx, q, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `DELETE FROM sessions WHERE expires_at < $1 RETURNING id::text`, now)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var out domain.Session
	var role string
	if err := row.Scan(
		&out.ID,
		&out.Token,
		&out.UserID,
		&out.Username,
		&out.Email,
		&role,
		&out.UpstreamToken,
		&out.CreatedAt,
		&out.ExpiresAt,
	); err != nil {
		return nil, err
	}
	out.Role = domain.ParseRole(role)
	return &out, nil
}

package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/operacoes-b2b/chamado-service/internal/domain"
)

// SessionRepository stores server-side session records. Token lookups only
// return active, non-expired sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	FindByToken(ctx context.Context, token string) (*domain.Session, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	Invalidate(ctx context.Context, token string) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a Postgres-backed implementation.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	const query = `
        INSERT INTO user_sessions (user_id, token, refresh_token, expires_at, ip, user_agent, ativo, data_criacao)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		session.UserID,
		session.Token,
		session.RefreshToken,
		session.ExpiresAt,
		session.IP,
		session.UserAgent,
		session.Ativo,
		session.DataCriacao,
	).Scan(&session.ID)
}

func (r *sessionRepository) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	const query = `
        SELECT id, user_id, token, refresh_token, expires_at, ip, user_agent, ativo, data_criacao
        FROM user_sessions WHERE token=$1 AND ativo AND expires_at > NOW()`
	return r.fetchSingle(ctx, query, token)
}

func (r *sessionRepository) FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	const query = `
        SELECT id, user_id, token, refresh_token, expires_at, ip, user_agent, ativo, data_criacao
        FROM user_sessions WHERE refresh_token=$1 AND ativo`
	return r.fetchSingle(ctx, query, refreshToken)
}

// Invalidate deactivates the session matching the token. Idempotent: a
// second call on an already inactive session is a no-op.
func (r *sessionRepository) Invalidate(ctx context.Context, token string) error {
	const query = `UPDATE user_sessions SET ativo=false WHERE token=$1`
	_, err := r.pool.Exec(ctx, query, token)
	return err
}

func (r *sessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE user_sessions SET ativo=false WHERE ativo AND expires_at <= $1`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *sessionRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Session, error) {
	var session domain.Session
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.RefreshToken,
		&session.ExpiresAt,
		&session.IP,
		&session.UserAgent,
		&session.Ativo,
		&session.DataCriacao,
	); err != nil {
		return nil, err
	}
	return &session, nil
}

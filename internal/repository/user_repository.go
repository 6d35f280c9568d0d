package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/operacoes-b2b/chamado-service/internal/domain"
)

// UserRepository defines persistence access for users. Lookups only return
// active users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (nome, email, password_hash, operador, role, carteiras, ativo, data_criacao)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		user.Nome,
		user.Email,
		user.PasswordHash,
		user.Operador,
		user.Role,
		user.Carteiras,
		user.Ativo,
		user.DataCriacao,
	).Scan(&user.ID)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, nome, email, password_hash, operador, role, carteiras, ativo, data_criacao, data_ultimo_login
        FROM users WHERE email=$1 AND ativo`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, nome, email, password_hash, operador, role, carteiras, ativo, data_criacao, data_ultimo_login
        FROM users WHERE id=$1 AND ativo`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET data_ultimo_login=$2 WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Nome,
		&user.Email,
		&user.PasswordHash,
		&user.Operador,
		&user.Role,
		&user.Carteiras,
		&user.Ativo,
		&user.DataCriacao,
		&user.DataUltimoLogin,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

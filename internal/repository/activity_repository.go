package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/operacoes-b2b/chamado-service/internal/domain"
)

// ActivityRepository stores user activity records. Write-only from the
// application's point of view; callers treat failures as diagnostic.
type ActivityRepository interface {
	Log(ctx context.Context, activity *domain.Activity) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Activity, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository returns a Postgres-backed implementation.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Log(ctx context.Context, activity *domain.Activity) error {
	detalhes, err := json.Marshal(activity.Detalhes)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO user_activities (user_id, acao, detalhes, timestamp, ip, user_agent)
        VALUES ($1,$2,$3::jsonb,$4,$5,$6)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		activity.UserID,
		activity.Acao,
		detalhes,
		activity.Timestamp,
		activity.IP,
		activity.UserAgent,
	).Scan(&activity.ID)
}

func (r *activityRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, user_id, acao, detalhes, timestamp, ip, user_agent
        FROM user_activities WHERE user_id=$1 ORDER BY timestamp DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Activity
	for rows.Next() {
		var (
			activity domain.Activity
			detalhes []byte
		)
		if err := rows.Scan(
			&activity.ID,
			&activity.UserID,
			&activity.Acao,
			&detalhes,
			&activity.Timestamp,
			&activity.IP,
			&activity.UserAgent,
		); err != nil {
			return nil, err
		}
		if len(detalhes) > 0 {
			if err := json.Unmarshal(detalhes, &activity.Detalhes); err != nil {
				return nil, err
			}
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}

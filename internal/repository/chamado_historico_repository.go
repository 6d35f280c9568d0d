package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/operacoes-b2b/chamado-service/internal/domain"
)

// ChamadoHistoricoRepository stores the field-level audit ledger.
type ChamadoHistoricoRepository interface {
	Registrar(ctx context.Context, historico *domain.ChamadoHistorico) error
	ListByLinha(ctx context.Context, linha int64) ([]domain.ChamadoHistorico, error)
}

type chamadoHistoricoRepository struct {
	pool *pgxpool.Pool
}

// NewChamadoHistoricoRepository builds the repository.
func NewChamadoHistoricoRepository(pool *pgxpool.Pool) ChamadoHistoricoRepository {
	return &chamadoHistoricoRepository{pool: pool}
}

func (r *chamadoHistoricoRepository) Registrar(ctx context.Context, historico *domain.ChamadoHistorico) error {
	anterior, err := json.Marshal(historico.ValorAnterior)
	if err != nil {
		return err
	}
	novo, err := json.Marshal(historico.ValorNovo)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO chamados_historico (chamado_id, linha, campo, valor_anterior, valor_novo, operador, timestamp, motivo)
        VALUES ($1,$2,$3,$4::jsonb,$5::jsonb,$6,$7,$8)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		historico.ChamadoID,
		historico.Linha,
		historico.Campo,
		anterior,
		novo,
		historico.Operador,
		historico.Timestamp,
		historico.Motivo,
	).Scan(&historico.ID)
}

func (r *chamadoHistoricoRepository) ListByLinha(ctx context.Context, linha int64) ([]domain.ChamadoHistorico, error) {
	const query = `
        SELECT id, chamado_id, linha, campo, valor_anterior, valor_novo, operador, timestamp, motivo
        FROM chamados_historico WHERE linha=$1 ORDER BY timestamp DESC`
	rows, err := r.pool.Query(ctx, query, linha)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChamadoHistorico
	for rows.Next() {
		var (
			historico domain.ChamadoHistorico
			anterior  []byte
			novo      []byte
		)
		if err := rows.Scan(
			&historico.ID,
			&historico.ChamadoID,
			&historico.Linha,
			&historico.Campo,
			&anterior,
			&novo,
			&historico.Operador,
			&historico.Timestamp,
			&historico.Motivo,
		); err != nil {
			return nil, err
		}
		if len(anterior) > 0 {
			if err := json.Unmarshal(anterior, &historico.ValorAnterior); err != nil {
				return nil, err
			}
		}
		if len(novo) > 0 {
			if err := json.Unmarshal(novo, &historico.ValorNovo); err != nil {
				return nil, err
			}
		}
		result = append(result, historico)
	}
	return result, rows.Err()
}

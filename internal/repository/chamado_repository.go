package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/operacoes-b2b/chamado-service/internal/domain"
)

// ChamadoFilter captures listing parameters. Statuses and Carteiras match
// any of the given values; BuscaGeral is a case-insensitive substring match
// across cliente, descricao and assunto.
type ChamadoFilter struct {
	Operador   *string
	Statuses   []string
	Carteiras  []string
	DataInicio *time.Time
	DataFim    *time.Time
	BuscaGeral *string
	Skip       int
	Limit      int
}

// ChamadoRepository encapsulates chamado persistence. Mutations that carry
// an ownership or finalization precondition express it as a conditional
// single-row update so concurrent writers are serialized by the store.
type ChamadoRepository interface {
	Create(ctx context.Context, chamado *domain.Chamado) error
	FindByLinha(ctx context.Context, linha int64) (*domain.Chamado, error)
	Buscar(ctx context.Context, filter ChamadoFilter) ([]domain.Chamado, error)
	Contar(ctx context.Context, filter ChamadoFilter) (int64, error)

	// Pegar claims the chamado for operador. The update only applies while
	// the chamado is unassigned or already owned by the same operador;
	// the boolean reports whether the claim won.
	Pegar(ctx context.Context, linha int64, operador string, andamento domain.Andamento, now time.Time) (bool, error)
	AdicionarAndamento(ctx context.Context, linha int64, andamento domain.Andamento, now time.Time) error
	AtualizarStatus(ctx context.Context, linha int64, novoStatus, operador string, andamento domain.Andamento, now time.Time) error
	// Finalizar applies only while data_finalizacao is unset; the boolean
	// reports whether this call performed the finalization.
	Finalizar(ctx context.Context, linha int64, resolucao, operador string, tempoTotal int64, andamento domain.Andamento, now time.Time) (bool, error)
	Transferir(ctx context.Context, linha int64, origem, destino string, andamento domain.Andamento, now time.Time) error
}

type chamadoRepository struct {
	pool *pgxpool.Pool
}

// NewChamadoRepository returns a Postgres-backed implementation.
func NewChamadoRepository(pool *pgxpool.Pool) ChamadoRepository {
	return &chamadoRepository{pool: pool}
}

const chamadoColumns = `id, linha, assunto, descricao, cliente, servico, carteira, cidade, uf, regional,
    status, operador, tecnico, contrato, prioridade, tags, data_abertura, vencimento,
    ultima_edicao, editado_por, resolucao, data_finalizacao, andamentos,
    tempo_abertura, tempo_primeiro_atendimento, tempo_ultima_interacao, tempo_finalizacao, tempo_total_minutos`

func (r *chamadoRepository) Create(ctx context.Context, chamado *domain.Chamado) error {
	andamentos, err := json.Marshal(chamado.Andamentos)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO chamados (linha, assunto, descricao, cliente, servico, carteira, cidade, uf, regional,
            status, operador, tecnico, contrato, prioridade, tags, data_abertura, vencimento,
            ultima_edicao, editado_por, andamentos, tempo_abertura)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20::jsonb,$21)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		chamado.Linha,
		chamado.Assunto,
		chamado.Descricao,
		chamado.Cliente,
		chamado.Servico,
		chamado.Carteira,
		chamado.Cidade,
		chamado.UF,
		chamado.Regional,
		chamado.Status,
		chamado.Operador,
		chamado.Tecnico,
		chamado.Contrato,
		chamado.Prioridade,
		chamado.Tags,
		chamado.DataAbertura,
		chamado.Vencimento,
		chamado.UltimaEdicao,
		chamado.EditadoPor,
		andamentos,
		chamado.Tempo.Abertura,
	).Scan(&chamado.ID)
}

func (r *chamadoRepository) FindByLinha(ctx context.Context, linha int64) (*domain.Chamado, error) {
	query := fmt.Sprintf(`SELECT %s FROM chamados WHERE linha=$1`, chamadoColumns)
	row := r.pool.QueryRow(ctx, query, linha)
	return scanChamado(row)
}

func (r *chamadoRepository) Buscar(ctx context.Context, filter ChamadoFilter) ([]domain.Chamado, error) {
	clauses, args := buildChamadoClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM chamados WHERE %s ORDER BY data_abertura DESC LIMIT %d OFFSET %d`,
		chamadoColumns, strings.Join(clauses, " AND "), limit, skip)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Chamado
	for rows.Next() {
		chamado, err := scanChamado(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *chamado)
	}
	return result, rows.Err()
}

func (r *chamadoRepository) Contar(ctx context.Context, filter ChamadoFilter) (int64, error) {
	clauses, args := buildChamadoClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM chamados WHERE %s`, strings.Join(clauses, " AND "))

	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *chamadoRepository) Pegar(ctx context.Context, linha int64, operador string, andamento domain.Andamento, now time.Time) (bool, error) {
	payload, err := marshalAndamento(andamento)
	if err != nil {
		return false, err
	}
	const query = `
        UPDATE chamados SET operador=$2, editado_por=$2, ultima_edicao=$3,
            tempo_primeiro_atendimento = COALESCE(tempo_primeiro_atendimento, $3),
            tempo_ultima_interacao = $3,
            andamentos = andamentos || $4::jsonb
        WHERE linha=$1 AND (operador IS NULL OR operador='' OR operador=$2)`
	cmd, err := r.pool.Exec(ctx, query, linha, operador, now, payload)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *chamadoRepository) AdicionarAndamento(ctx context.Context, linha int64, andamento domain.Andamento, now time.Time) error {
	payload, err := marshalAndamento(andamento)
	if err != nil {
		return err
	}
	const query = `
        UPDATE chamados SET ultima_edicao=$2, editado_por=$3,
            tempo_ultima_interacao=$2,
            andamentos = andamentos || $4::jsonb
        WHERE linha=$1`
	cmd, err := r.pool.Exec(ctx, query, linha, now, andamento.Operador, payload)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *chamadoRepository) AtualizarStatus(ctx context.Context, linha int64, novoStatus, operador string, andamento domain.Andamento, now time.Time) error {
	payload, err := marshalAndamento(andamento)
	if err != nil {
		return err
	}
	const query = `
        UPDATE chamados SET status=$2, ultima_edicao=$3, editado_por=$4,
            tempo_ultima_interacao=$3,
            andamentos = andamentos || $5::jsonb
        WHERE linha=$1`
	cmd, err := r.pool.Exec(ctx, query, linha, novoStatus, now, operador, payload)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *chamadoRepository) Finalizar(ctx context.Context, linha int64, resolucao, operador string, tempoTotal int64, andamento domain.Andamento, now time.Time) (bool, error) {
	payload, err := marshalAndamento(andamento)
	if err != nil {
		return false, err
	}
	const query = `
        UPDATE chamados SET status=$2, resolucao=$3, data_finalizacao=$4,
            ultima_edicao=$4, editado_por=$5,
            tempo_finalizacao=$4, tempo_ultima_interacao=$4, tempo_total_minutos=$6,
            andamentos = andamentos || $7::jsonb
        WHERE linha=$1 AND data_finalizacao IS NULL`
	cmd, err := r.pool.Exec(ctx, query, linha, domain.StatusFinalizado, resolucao, now, operador, tempoTotal, payload)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *chamadoRepository) Transferir(ctx context.Context, linha int64, origem, destino string, andamento domain.Andamento, now time.Time) error {
	payload, err := marshalAndamento(andamento)
	if err != nil {
		return err
	}
	const query = `
        UPDATE chamados SET operador=$2, ultima_edicao=$3, editado_por=$4,
            tempo_ultima_interacao=$3,
            andamentos = andamentos || $5::jsonb
        WHERE linha=$1`
	cmd, err := r.pool.Exec(ctx, query, linha, destino, now, origem, payload)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func buildChamadoClauses(filter ChamadoFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Operador != nil {
		args = append(args, *filter.Operador)
		clauses = append(clauses, fmt.Sprintf("operador=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Carteiras) > 0 {
		placeholders := make([]string, len(filter.Carteiras))
		for i, carteira := range filter.Carteiras {
			args = append(args, carteira)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("carteira IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.DataInicio != nil {
		args = append(args, *filter.DataInicio)
		clauses = append(clauses, fmt.Sprintf("data_abertura >= $%d", len(args)))
	}
	if filter.DataFim != nil {
		args = append(args, *filter.DataFim)
		clauses = append(clauses, fmt.Sprintf("data_abertura <= $%d", len(args)))
	}
	if filter.BuscaGeral != nil && strings.TrimSpace(*filter.BuscaGeral) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.BuscaGeral)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(cliente) LIKE %s OR LOWER(descricao) LIKE %s OR LOWER(assunto) LIKE %s)",
			placeholder, placeholder, placeholder))
	}
	return clauses, args
}

func marshalAndamento(andamento domain.Andamento) ([]byte, error) {
	// Appended as a single-element array so `andamentos || $n::jsonb`
	// concatenates instead of nesting.
	return json.Marshal([]domain.Andamento{andamento})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChamado(row rowScanner) (*domain.Chamado, error) {
	var (
		chamado    domain.Chamado
		andamentos []byte
	)
	if err := row.Scan(
		&chamado.ID,
		&chamado.Linha,
		&chamado.Assunto,
		&chamado.Descricao,
		&chamado.Cliente,
		&chamado.Servico,
		&chamado.Carteira,
		&chamado.Cidade,
		&chamado.UF,
		&chamado.Regional,
		&chamado.Status,
		&chamado.Operador,
		&chamado.Tecnico,
		&chamado.Contrato,
		&chamado.Prioridade,
		&chamado.Tags,
		&chamado.DataAbertura,
		&chamado.Vencimento,
		&chamado.UltimaEdicao,
		&chamado.EditadoPor,
		&chamado.Resolucao,
		&chamado.DataFinalizacao,
		&andamentos,
		&chamado.Tempo.Abertura,
		&chamado.Tempo.PrimeiroAtendimento,
		&chamado.Tempo.UltimaInteracao,
		&chamado.Tempo.Finalizacao,
		&chamado.Tempo.TempoTotal,
	); err != nil {
		return nil, err
	}
	if len(andamentos) > 0 {
		if err := json.Unmarshal(andamentos, &chamado.Andamentos); err != nil {
			return nil, err
		}
	}
	return &chamado, nil
}

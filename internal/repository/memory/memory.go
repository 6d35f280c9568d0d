// Package memory holds in-memory implementations of the repository
// interfaces, used as store doubles in tests. Production wiring always uses
// the Postgres repositories and fails fast when the database is
// unreachable; there is no runtime fallback to this package.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/operacoes-b2b/chamado-service/internal/domain"
	"github.com/operacoes-b2b/chamado-service/internal/repository"
)

// ChamadoRepository is a mutex-guarded map keyed by linha. Conditional
// updates mirror the SQL guards so ownership and finalization races behave
// like the real store.
type ChamadoRepository struct {
	mu       sync.Mutex
	chamados map[int64]*domain.Chamado
	nextID   int
}

// NewChamadoRepository builds an empty store.
func NewChamadoRepository() *ChamadoRepository {
	return &ChamadoRepository{chamados: make(map[int64]*domain.Chamado)}
}

func (r *ChamadoRepository) Create(_ context.Context, chamado *domain.Chamado) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	chamado.ID = strconv.Itoa(r.nextID)
	clone := cloneChamado(chamado)
	r.chamados[chamado.Linha] = &clone
	return nil
}

func (r *ChamadoRepository) FindByLinha(_ context.Context, linha int64) (*domain.Chamado, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chamado, ok := r.chamados[linha]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := cloneChamado(chamado)
	return &clone, nil
}

func (r *ChamadoRepository) Buscar(_ context.Context, filter repository.ChamadoFilter) ([]domain.Chamado, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := r.matching(filter)
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].DataAbertura.After(matched[j].DataAbertura)
	})

	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}
	if skip >= len(matched) {
		return nil, nil
	}
	matched = matched[skip:]

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *ChamadoRepository) Contar(_ context.Context, filter repository.ChamadoFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(filter))), nil
}

func (r *ChamadoRepository) Pegar(_ context.Context, linha int64, operador string, andamento domain.Andamento, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chamado, ok := r.chamados[linha]
	if !ok {
		return false, nil
	}
	if chamado.Operador != nil && *chamado.Operador != "" && *chamado.Operador != operador {
		return false, nil
	}
	op := operador
	chamado.Operador = &op
	chamado.EditadoPor = &op
	chamado.UltimaEdicao = now
	if chamado.Tempo.PrimeiroAtendimento == nil {
		ts := now
		chamado.Tempo.PrimeiroAtendimento = &ts
	}
	interacao := now
	chamado.Tempo.UltimaInteracao = &interacao
	chamado.Andamentos = append(chamado.Andamentos, andamento)
	return true, nil
}

func (r *ChamadoRepository) AdicionarAndamento(_ context.Context, linha int64, andamento domain.Andamento, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chamado, ok := r.chamados[linha]
	if !ok {
		return pgx.ErrNoRows
	}
	op := andamento.Operador
	chamado.EditadoPor = &op
	chamado.UltimaEdicao = now
	interacao := now
	chamado.Tempo.UltimaInteracao = &interacao
	chamado.Andamentos = append(chamado.Andamentos, andamento)
	return nil
}

func (r *ChamadoRepository) AtualizarStatus(_ context.Context, linha int64, novoStatus, operador string, andamento domain.Andamento, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chamado, ok := r.chamados[linha]
	if !ok {
		return pgx.ErrNoRows
	}
	chamado.Status = novoStatus
	op := operador
	chamado.EditadoPor = &op
	chamado.UltimaEdicao = now
	interacao := now
	chamado.Tempo.UltimaInteracao = &interacao
	chamado.Andamentos = append(chamado.Andamentos, andamento)
	return nil
}

func (r *ChamadoRepository) Finalizar(_ context.Context, linha int64, resolucao, operador string, tempoTotal int64, andamento domain.Andamento, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chamado, ok := r.chamados[linha]
	if !ok {
		return false, nil
	}
	if chamado.DataFinalizacao != nil {
		return false, nil
	}
	chamado.Status = domain.StatusFinalizado
	res := resolucao
	chamado.Resolucao = &res
	fim := now
	chamado.DataFinalizacao = &fim
	op := operador
	chamado.EditadoPor = &op
	chamado.UltimaEdicao = now
	chamado.Tempo.Finalizacao = &fim
	chamado.Tempo.UltimaInteracao = &fim
	total := tempoTotal
	chamado.Tempo.TempoTotal = &total
	chamado.Andamentos = append(chamado.Andamentos, andamento)
	return true, nil
}

func (r *ChamadoRepository) Transferir(_ context.Context, linha int64, origem, destino string, andamento domain.Andamento, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chamado, ok := r.chamados[linha]
	if !ok {
		return pgx.ErrNoRows
	}
	dest := destino
	chamado.Operador = &dest
	orig := origem
	chamado.EditadoPor = &orig
	chamado.UltimaEdicao = now
	interacao := now
	chamado.Tempo.UltimaInteracao = &interacao
	chamado.Andamentos = append(chamado.Andamentos, andamento)
	return nil
}

func (r *ChamadoRepository) matching(filter repository.ChamadoFilter) []domain.Chamado {
	var matched []domain.Chamado
	for _, chamado := range r.chamados {
		if filter.Operador != nil && chamado.OperadorAtual() != *filter.Operador {
			continue
		}
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, chamado.Status) {
			continue
		}
		if len(filter.Carteiras) > 0 && !contains(filter.Carteiras, chamado.Carteira) {
			continue
		}
		if filter.DataInicio != nil && chamado.DataAbertura.Before(*filter.DataInicio) {
			continue
		}
		if filter.DataFim != nil && chamado.DataAbertura.After(*filter.DataFim) {
			continue
		}
		if filter.BuscaGeral != nil && strings.TrimSpace(*filter.BuscaGeral) != "" {
			term := strings.ToLower(strings.TrimSpace(*filter.BuscaGeral))
			if !strings.Contains(strings.ToLower(chamado.Cliente), term) &&
				!strings.Contains(strings.ToLower(chamado.Descricao), term) &&
				!strings.Contains(strings.ToLower(chamado.Assunto), term) {
				continue
			}
		}
		matched = append(matched, cloneChamado(chamado))
	}
	return matched
}

// HistoricoRepository is an append-only slice of audit records. FailTimes
// makes the next N writes fail, for exercising the bounded retry path.
type HistoricoRepository struct {
	mu        sync.Mutex
	records   []domain.ChamadoHistorico
	nextID    int
	FailTimes int
	FailErr   error
}

// NewHistoricoRepository builds an empty ledger.
func NewHistoricoRepository() *HistoricoRepository {
	return &HistoricoRepository{}
}

func (r *HistoricoRepository) Registrar(_ context.Context, historico *domain.ChamadoHistorico) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailTimes > 0 {
		r.FailTimes--
		return r.FailErr
	}
	r.nextID++
	historico.ID = strconv.Itoa(r.nextID)
	r.records = append(r.records, *historico)
	return nil
}

func (r *HistoricoRepository) ListByLinha(_ context.Context, linha int64) ([]domain.ChamadoHistorico, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ChamadoHistorico
	for _, record := range r.records {
		if record.Linha == linha {
			result = append(result, record)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result, nil
}

// UserRepository stores users keyed by id.
type UserRepository struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int
}

// NewUserRepository builds an empty store.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = strconv.Itoa(r.nextID)
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email && user.Ativo {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok || !user.Ativo {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *UserRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ts := at
	user.DataUltimoLogin = &ts
	return nil
}

// SessionRepository stores sessions keyed by id.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	nextID   int
}

// NewSessionRepository builds an empty store.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*domain.Session)}
}

func (r *SessionRepository) Create(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	session.ID = strconv.Itoa(r.nextID)
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *SessionRepository) FindByToken(_ context.Context, token string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.Token == token && session.Ativo && !session.Expired(time.Now()) {
			clone := *session
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *SessionRepository) FindByRefreshToken(_ context.Context, refreshToken string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.RefreshToken == refreshToken && session.Ativo {
			clone := *session
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *SessionRepository) Invalidate(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.Token == token {
			session.Ativo = false
		}
	}
	return nil
}

func (r *SessionRepository) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, session := range r.sessions {
		if session.Ativo && session.Expired(now) {
			session.Ativo = false
			count++
		}
	}
	return count, nil
}

// ActivityRepository records activity entries. FailErr, when set, makes
// every write fail, for verifying that callers swallow activity errors.
type ActivityRepository struct {
	mu      sync.Mutex
	records []domain.Activity
	nextID  int
	FailErr error
}

// NewActivityRepository builds an empty log.
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{}
}

func (r *ActivityRepository) Log(_ context.Context, activity *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailErr != nil {
		return r.FailErr
	}
	r.nextID++
	activity.ID = strconv.Itoa(r.nextID)
	r.records = append(r.records, *activity)
	return nil
}

func (r *ActivityRepository) ListByUser(_ context.Context, userID string, limit int) ([]domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Activity
	for _, activity := range r.records {
		if activity.UserID == userID {
			result = append(result, activity)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func cloneChamado(chamado *domain.Chamado) domain.Chamado {
	clone := *chamado
	clone.Andamentos = append([]domain.Andamento(nil), chamado.Andamentos...)
	clone.Tags = append([]string(nil), chamado.Tags...)
	return clone
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

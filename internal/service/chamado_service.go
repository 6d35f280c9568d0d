package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/operacoes-b2b/chamado-service/internal/auth"
	"github.com/operacoes-b2b/chamado-service/internal/domain"
	"github.com/operacoes-b2b/chamado-service/internal/events"
	"github.com/operacoes-b2b/chamado-service/internal/repository"
	apperrors "github.com/operacoes-b2b/chamado-service/pkg/util"
)

// historicoWriteAttempts bounds the audit-ledger write retry. A mutation
// whose ledger entry cannot be written after these attempts fails loudly
// rather than losing the record silently.
const historicoWriteAttempts = 3

// Actor identifies the caller of a lifecycle operation.
type Actor struct {
	UserID    string
	Operador  string
	Role      domain.Role
	Carteiras []string
	Meta      domain.ClientMeta
}

// ChamadoServiceDeps bundles the collaborators of ChamadoService.
type ChamadoServiceDeps struct {
	Chamados   repository.ChamadoRepository
	Historicos repository.ChamadoHistoricoRepository
	Activity   *ActivityLogger
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// ChamadoService drives the chamado lifecycle: claiming, progress entries,
// status changes, finalization and transfers. Ownership and finalization
// preconditions are enforced both here and by conditional updates in the
// repository, so concurrent writers cannot both win.
type ChamadoService struct {
	chamados   repository.ChamadoRepository
	historicos repository.ChamadoHistoricoRepository
	activity   *ActivityLogger
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewChamadoService builds the service.
func NewChamadoService(deps ChamadoServiceDeps) *ChamadoService {
	return &ChamadoService{
		chamados:   deps.Chamados,
		historicos: deps.Historicos,
		activity:   deps.Activity,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// BuscaFilter is the caller-facing listing filter.
type BuscaFilter struct {
	Operador   *string
	Statuses   []string
	Carteiras  []string
	DataInicio *time.Time
	DataFim    *time.Time
	BuscaGeral *string
	Skip       int
	Limit      int
}

// BuscaResult carries one listing page plus the total match count.
type BuscaResult struct {
	Chamados []domain.Chamado
	Total    int64
	Skip     int
	Limit    int
}

// Pegar claims the chamado for the acting operator. Claiming a chamado
// already owned by the same operator is a no-op; one owned by another
// operator is rejected.
func (s *ChamadoService) Pegar(ctx context.Context, actor Actor, linha int64) error {
	chamado, err := s.findByLinha(ctx, linha)
	if err != nil {
		return err
	}

	current := chamado.OperadorAtual()
	if current == actor.Operador {
		return nil
	}
	if current != "" {
		return apperrors.NewForbidden("chamado already assigned to another operator")
	}

	now := time.Now()
	andamento := newAndamento(actor.Operador, fmt.Sprintf("Chamado atribuído para %s", actor.Operador), domain.AndamentoTransferencia)
	andamento.OperadorNovo = &actor.Operador

	claimed, err := s.chamados.Pegar(ctx, linha, actor.Operador, andamento, now)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !claimed {
		// Lost the race to a concurrent claim.
		return apperrors.NewForbidden("chamado already assigned to another operator")
	}

	if err := s.registrarHistorico(ctx, &domain.ChamadoHistorico{
		ChamadoID:     chamado.ID,
		Linha:         linha,
		Campo:         domain.CampoOperador,
		ValorAnterior: current,
		ValorNovo:     actor.Operador,
		Operador:      actor.Operador,
		Timestamp:     now,
	}); err != nil {
		return err
	}

	s.activity.Log(ctx, actor.UserID, domain.AcaoPegarChamado, map[string]any{"linha": linha}, actor.Meta)
	s.publish(ctx, events.EventChamadoAtribuido, linha, actor, events.ChamadoAtribuidoPayload{Operador: actor.Operador})
	return nil
}

// AdicionarAndamento appends a free-form progress comment. Only the owning
// operator or an admin may write.
func (s *ChamadoService) AdicionarAndamento(ctx context.Context, actor Actor, linha int64, texto string) error {
	texto = strings.TrimSpace(texto)
	if texto == "" {
		return apperrors.NewValidationError("andamento text is required", nil)
	}

	chamado, err := s.findByLinha(ctx, linha)
	if err != nil {
		return err
	}
	if !auth.CanEditChamado(actor.Role, chamado.OperadorAtual(), actor.Operador) {
		return apperrors.NewForbidden("chamado belongs to another operator")
	}

	now := time.Now()
	andamento := newAndamento(actor.Operador, texto, domain.AndamentoComentario)
	if err := s.chamados.AdicionarAndamento(ctx, linha, andamento, now); err != nil {
		return s.mapMutationError(err, linha)
	}

	s.activity.Log(ctx, actor.UserID, domain.AcaoAdicionarAndamento, map[string]any{"linha": linha}, actor.Meta)
	s.publish(ctx, events.EventAndamentoAdicionado, linha, actor, events.AndamentoAdicionadoPayload{Descricao: texto})
	return nil
}

// AtualizarStatus changes the chamado status and records the transition as
// both a progress entry and an audit record.
func (s *ChamadoService) AtualizarStatus(ctx context.Context, actor Actor, linha int64, novoStatus string) error {
	novoStatus = strings.TrimSpace(novoStatus)
	if novoStatus == "" {
		return apperrors.NewValidationError("status is required", nil)
	}

	chamado, err := s.findByLinha(ctx, linha)
	if err != nil {
		return err
	}
	if !auth.CanEditChamado(actor.Role, chamado.OperadorAtual(), actor.Operador) {
		return apperrors.NewForbidden("chamado belongs to another operator")
	}

	statusAnterior := chamado.Status
	now := time.Now()
	andamento := newAndamento(actor.Operador,
		fmt.Sprintf("Status alterado de %q para %q", statusAnterior, novoStatus),
		domain.AndamentoStatus)
	andamento.StatusAnterior = &statusAnterior
	andamento.StatusNovo = &novoStatus

	if err := s.chamados.AtualizarStatus(ctx, linha, novoStatus, actor.Operador, andamento, now); err != nil {
		return s.mapMutationError(err, linha)
	}

	if err := s.registrarHistorico(ctx, &domain.ChamadoHistorico{
		ChamadoID:     chamado.ID,
		Linha:         linha,
		Campo:         domain.CampoStatus,
		ValorAnterior: statusAnterior,
		ValorNovo:     novoStatus,
		Operador:      actor.Operador,
		Timestamp:     now,
	}); err != nil {
		return err
	}

	s.activity.Log(ctx, actor.UserID, domain.AcaoAtualizarStatus,
		map[string]any{"linha": linha, "status": novoStatus}, actor.Meta)
	s.publish(ctx, events.EventStatusAlterado, linha, actor, events.StatusAlteradoPayload{
		StatusAnterior: statusAnterior,
		StatusNovo:     novoStatus,
	})
	return nil
}

// Finalizar closes the chamado with a resolution. Finalization is terminal:
// a second call is rejected and the recorded resolution and total time are
// never overwritten.
func (s *ChamadoService) Finalizar(ctx context.Context, actor Actor, linha int64, resolucao string) error {
	resolucao = strings.TrimSpace(resolucao)
	if resolucao == "" {
		return apperrors.NewValidationError("resolucao is required", nil)
	}

	chamado, err := s.findByLinha(ctx, linha)
	if err != nil {
		return err
	}
	if !auth.CanEditChamado(actor.Role, chamado.OperadorAtual(), actor.Operador) {
		return apperrors.NewForbidden("chamado belongs to another operator")
	}
	if chamado.Finalizado() {
		return apperrors.NewConflict("chamado already finalized", map[string]any{"linha": linha})
	}

	now := time.Now()
	tempoTotal := int64(now.Sub(chamado.Tempo.Abertura).Minutes())
	andamento := newAndamento(actor.Operador, fmt.Sprintf("Chamado finalizado: %s", resolucao), domain.AndamentoFinalizacao)
	statusAnterior := chamado.Status
	statusNovo := domain.StatusFinalizado
	andamento.StatusAnterior = &statusAnterior
	andamento.StatusNovo = &statusNovo

	finalizado, err := s.chamados.Finalizar(ctx, linha, resolucao, actor.Operador, tempoTotal, andamento, now)
	if err != nil {
		return s.mapMutationError(err, linha)
	}
	if !finalizado {
		return apperrors.NewConflict("chamado already finalized", map[string]any{"linha": linha})
	}

	if err := s.registrarHistorico(ctx, &domain.ChamadoHistorico{
		ChamadoID:     chamado.ID,
		Linha:         linha,
		Campo:         domain.CampoFinalizacao,
		ValorAnterior: map[string]any{"status": statusAnterior},
		ValorNovo: map[string]any{
			"status":          domain.StatusFinalizado,
			"resolucao":       resolucao,
			"dataFinalizacao": now,
			"tempoTotal":      tempoTotal,
		},
		Operador:  actor.Operador,
		Timestamp: now,
	}); err != nil {
		return err
	}

	s.activity.Log(ctx, actor.UserID, domain.AcaoFinalizarChamado, map[string]any{"linha": linha}, actor.Meta)
	s.publish(ctx, events.EventChamadoFinalizado, linha, actor, events.ChamadoFinalizadoPayload{
		Resolucao:  resolucao,
		TempoTotal: tempoTotal,
	})
	return nil
}

// Transferir reassigns the chamado to another operator with a reason. Any
// authenticated operator may transfer, including from another owner.
func (s *ChamadoService) Transferir(ctx context.Context, actor Actor, linha int64, destino, motivo string) error {
	destino = strings.TrimSpace(destino)
	if destino == "" {
		return apperrors.NewValidationError("destination operator is required", nil)
	}
	motivo = strings.TrimSpace(motivo)

	chamado, err := s.findByLinha(ctx, linha)
	if err != nil {
		return err
	}

	anterior := chamado.OperadorAtual()
	now := time.Now()
	descricao := fmt.Sprintf("Chamado transferido para %s", destino)
	if motivo != "" {
		descricao = fmt.Sprintf("Chamado transferido para %s. Motivo: %s", destino, motivo)
	}
	andamento := newAndamento(actor.Operador, descricao, domain.AndamentoTransferencia)
	if anterior != "" {
		andamento.OperadorAnterior = &anterior
	}
	andamento.OperadorNovo = &destino

	if err := s.chamados.Transferir(ctx, linha, actor.Operador, destino, andamento, now); err != nil {
		return s.mapMutationError(err, linha)
	}

	historico := &domain.ChamadoHistorico{
		ChamadoID:     chamado.ID,
		Linha:         linha,
		Campo:         domain.CampoOperador,
		ValorAnterior: anterior,
		ValorNovo:     destino,
		Operador:      actor.Operador,
		Timestamp:     now,
	}
	if motivo != "" {
		historico.Motivo = &motivo
	}
	if err := s.registrarHistorico(ctx, historico); err != nil {
		return err
	}

	s.activity.Log(ctx, actor.UserID, domain.AcaoTransferirChamado,
		map[string]any{"linha": linha, "destino": destino}, actor.Meta)
	s.publish(ctx, events.EventChamadoTransferido, linha, actor, events.ChamadoTransferidoPayload{
		OperadorAnterior: anterior,
		OperadorNovo:     destino,
		Motivo:           motivo,
	})
	return nil
}

// Buscar lists chamados for the actor. Non-admin callers are scoped to
// their carteiras; an explicit carteira filter is intersected with that set.
func (s *ChamadoService) Buscar(ctx context.Context, actor Actor, filter BuscaFilter) (*BuscaResult, error) {
	carteiras := filter.Carteiras
	if actor.Role != domain.RoleAdmin && len(actor.Carteiras) > 0 {
		if len(carteiras) == 0 {
			carteiras = actor.Carteiras
		} else {
			carteiras = intersect(carteiras, actor.Carteiras)
			if len(carteiras) == 0 {
				return &BuscaResult{Chamados: []domain.Chamado{}, Skip: filter.Skip, Limit: filter.Limit}, nil
			}
		}
	}

	repoFilter := repository.ChamadoFilter{
		Operador:   filter.Operador,
		Statuses:   filter.Statuses,
		Carteiras:  carteiras,
		DataInicio: filter.DataInicio,
		DataFim:    filter.DataFim,
		BuscaGeral: filter.BuscaGeral,
		Skip:       filter.Skip,
		Limit:      filter.Limit,
	}

	chamados, err := s.chamados.Buscar(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	total, err := s.chamados.Contar(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if chamados == nil {
		chamados = []domain.Chamado{}
	}

	return &BuscaResult{
		Chamados: chamados,
		Total:    total,
		Skip:     filter.Skip,
		Limit:    filter.Limit,
	}, nil
}

// BuscarPorLinha returns a single chamado.
func (s *ChamadoService) BuscarPorLinha(ctx context.Context, linha int64) (*domain.Chamado, error) {
	return s.findByLinha(ctx, linha)
}

// Historico returns the audit ledger for the chamado, newest first.
func (s *ChamadoService) Historico(ctx context.Context, linha int64) ([]domain.ChamadoHistorico, error) {
	registros, err := s.historicos.ListByLinha(ctx, linha)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if registros == nil {
		registros = []domain.ChamadoHistorico{}
	}
	return registros, nil
}

func (s *ChamadoService) findByLinha(ctx context.Context, linha int64) (*domain.Chamado, error) {
	chamado, err := s.chamados.FindByLinha(ctx, linha)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("chamado", map[string]any{"linha": linha})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return chamado, nil
}

// registrarHistorico writes the ledger entry, retrying transient failures.
// A mutation without its ledger entry must not look successful, so the last
// error is surfaced.
func (s *ChamadoService) registrarHistorico(ctx context.Context, historico *domain.ChamadoHistorico) error {
	var lastErr error
	for attempt := 1; attempt <= historicoWriteAttempts; attempt++ {
		if lastErr = s.historicos.Registrar(ctx, historico); lastErr == nil {
			return nil
		}
		s.logger.Warn("historico write failed",
			zap.Int64("linha", historico.Linha),
			zap.String("campo", historico.Campo),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}
	return apperrors.NewInternalError(lastErr)
}

func (s *ChamadoService) mapMutationError(err error, linha int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("chamado", map[string]any{"linha": linha})
	}
	return apperrors.NewInternalError(err)
}

func (s *ChamadoService) publish(ctx context.Context, eventType events.EventType, linha int64, actor Actor, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Linha:     linha,
		Actor:     events.Actor{UserID: actor.UserID, Operador: actor.Operador},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func newAndamento(operador, descricao string, tipo domain.AndamentoTipo) domain.Andamento {
	return domain.Andamento{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Operador:  operador,
		Descricao: descricao,
		Tipo:      tipo,
	}
}

func intersect(a, b []string) []string {
	allowed := make(map[string]struct{}, len(b))
	for _, item := range b {
		allowed[item] = struct{}{}
	}
	var out []string
	for _, item := range a {
		if _, ok := allowed[item]; ok {
			out = append(out, item)
		}
	}
	return out
}

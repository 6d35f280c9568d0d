package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/operacoes-b2b/chamado-service/internal/domain"
	"github.com/operacoes-b2b/chamado-service/internal/events"
	"github.com/operacoes-b2b/chamado-service/internal/repository"
	"github.com/operacoes-b2b/chamado-service/internal/repository/memory"
	"github.com/operacoes-b2b/chamado-service/internal/service"
	apperrors "github.com/operacoes-b2b/chamado-service/pkg/util"
)

type chamadoFixture struct {
	chamados   *memory.ChamadoRepository
	historicos *memory.HistoricoRepository
	activities *memory.ActivityRepository
	dispatcher events.Dispatcher
	svc        *service.ChamadoService
}

func newChamadoFixture() *chamadoFixture {
	f := &chamadoFixture{
		chamados:   memory.NewChamadoRepository(),
		historicos: memory.NewHistoricoRepository(),
		activities: memory.NewActivityRepository(),
		dispatcher: events.NewInMemoryDispatcher(),
	}
	f.svc = service.NewChamadoService(service.ChamadoServiceDeps{
		Chamados:   f.chamados,
		Historicos: f.historicos,
		Activity:   service.NewActivityLogger(f.activities, zap.NewNop()),
		Dispatcher: f.dispatcher,
		Logger:     zap.NewNop(),
	})
	return f
}

func (f *chamadoFixture) seed(t *testing.T, linha int64, operador string) *domain.Chamado {
	t.Helper()
	chamado := &domain.Chamado{
		Linha:        linha,
		Assunto:      "Sem sinal",
		Descricao:    "Cliente sem conexão desde ontem",
		Cliente:      "Empresa Alfa",
		Carteira:     "B2B Norte",
		Status:       "ABERTO",
		Prioridade:   domain.PrioridadeMedia,
		DataAbertura: time.Now().Add(-2 * time.Hour),
		UltimaEdicao: time.Now().Add(-2 * time.Hour),
		Tempo:        domain.Tempo{Abertura: time.Now().Add(-2 * time.Hour)},
	}
	if operador != "" {
		chamado.Operador = &operador
	}
	require.NoError(t, f.chamados.Create(context.Background(), chamado))
	return chamado
}

func operadorActor(operador string) service.Actor {
	return service.Actor{
		UserID:    "u-" + operador,
		Operador:  operador,
		Role:      domain.RoleOperador,
		Carteiras: []string{"B2B Norte"},
	}
}

func adminActor(operador string) service.Actor {
	return service.Actor{UserID: "u-" + operador, Operador: operador, Role: domain.RoleAdmin}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, code, domainErr.Code)
}

func TestPegarClaimsUnassignedChamado(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 42, "")
	alice := operadorActor("Alice")

	require.NoError(t, f.svc.Pegar(context.Background(), alice, 42))

	chamado, err := f.chamados.FindByLinha(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, "Alice", chamado.OperadorAtual())
	require.NotNil(t, chamado.Tempo.PrimeiroAtendimento)
	require.Len(t, chamado.Andamentos, 1)
	require.Equal(t, domain.AndamentoTransferencia, chamado.Andamentos[0].Tipo)
	require.Equal(t, "Chamado atribuído para Alice", chamado.Andamentos[0].Descricao)

	registros, err := f.historicos.ListByLinha(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, registros, 1)
	require.Equal(t, domain.CampoOperador, registros[0].Campo)
	require.Equal(t, "Alice", registros[0].ValorNovo)

	atividades, err := f.activities.ListByUser(context.Background(), alice.UserID, 10)
	require.NoError(t, err)
	require.Len(t, atividades, 1)
	require.Equal(t, domain.AcaoPegarChamado, atividades[0].Acao)
}

func TestPegarSameOperadorIsNoOp(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 42, "")
	alice := operadorActor("Alice")

	require.NoError(t, f.svc.Pegar(context.Background(), alice, 42))
	require.NoError(t, f.svc.Pegar(context.Background(), alice, 42))

	chamado, err := f.chamados.FindByLinha(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, chamado.Andamentos, 1)

	registros, err := f.historicos.ListByLinha(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, registros, 1)
}

func TestPegarOwnedByAnotherOperadorIsForbidden(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 42, "Alice")

	err := f.svc.Pegar(context.Background(), operadorActor("Bob"), 42)
	requireCode(t, err, "FORBIDDEN")

	chamado, findErr := f.chamados.FindByLinha(context.Background(), 42)
	require.NoError(t, findErr)
	require.Equal(t, "Alice", chamado.OperadorAtual())
}

func TestPegarUnknownLinha(t *testing.T) {
	f := newChamadoFixture()
	err := f.svc.Pegar(context.Background(), operadorActor("Alice"), 999)
	requireCode(t, err, "NOT_FOUND")
}

func TestAdicionarAndamentoByOwner(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 7, "Alice")

	require.NoError(t, f.svc.AdicionarAndamento(context.Background(), operadorActor("Alice"), 7, "Técnico acionado"))

	chamado, err := f.chamados.FindByLinha(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, chamado.Andamentos, 1)
	require.Equal(t, domain.AndamentoComentario, chamado.Andamentos[0].Tipo)
	require.Equal(t, "Técnico acionado", chamado.Andamentos[0].Descricao)
	require.NotNil(t, chamado.Tempo.UltimaInteracao)

	// Comments are not field changes and leave no ledger entry.
	registros, err := f.historicos.ListByLinha(context.Background(), 7)
	require.NoError(t, err)
	require.Empty(t, registros)
}

func TestAdicionarAndamentoForeignOperadorIsForbidden(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 7, "Alice")

	err := f.svc.AdicionarAndamento(context.Background(), operadorActor("Bob"), 7, "tentativa")
	requireCode(t, err, "FORBIDDEN")
}

func TestAdicionarAndamentoAdminBypassesOwnership(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 7, "Alice")

	require.NoError(t, f.svc.AdicionarAndamento(context.Background(), adminActor("Carla"), 7, "revisado pela gestão"))

	chamado, err := f.chamados.FindByLinha(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, chamado.Andamentos, 1)
}

func TestAdicionarAndamentoRejectsEmptyText(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 7, "Alice")

	err := f.svc.AdicionarAndamento(context.Background(), operadorActor("Alice"), 7, "   ")
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestAtualizarStatusRecordsTransition(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 10, "Alice")

	require.NoError(t, f.svc.AtualizarStatus(context.Background(), operadorActor("Alice"), 10, "EM ANDAMENTO"))

	chamado, err := f.chamados.FindByLinha(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, "EM ANDAMENTO", chamado.Status)
	require.Len(t, chamado.Andamentos, 1)
	require.Equal(t, domain.AndamentoStatus, chamado.Andamentos[0].Tipo)
	require.Equal(t, `Status alterado de "ABERTO" para "EM ANDAMENTO"`, chamado.Andamentos[0].Descricao)
	require.Equal(t, "ABERTO", *chamado.Andamentos[0].StatusAnterior)
	require.Equal(t, "EM ANDAMENTO", *chamado.Andamentos[0].StatusNovo)

	registros, err := f.historicos.ListByLinha(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, registros, 1)
	require.Equal(t, domain.CampoStatus, registros[0].Campo)
	require.Equal(t, "ABERTO", registros[0].ValorAnterior)
	require.Equal(t, "EM ANDAMENTO", registros[0].ValorNovo)
}

func TestFinalizarClosesChamado(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 11, "Alice")

	require.NoError(t, f.svc.Finalizar(context.Background(), operadorActor("Alice"), 11, "Sinal restabelecido"))

	chamado, err := f.chamados.FindByLinha(context.Background(), 11)
	require.NoError(t, err)
	require.True(t, chamado.Finalizado())
	require.Equal(t, domain.StatusFinalizado, chamado.Status)
	require.Equal(t, "Sinal restabelecido", *chamado.Resolucao)
	require.NotNil(t, chamado.Tempo.Finalizacao)
	require.NotNil(t, chamado.Tempo.TempoTotal)
	// Seeded two hours before finalization.
	require.InDelta(t, 120, float64(*chamado.Tempo.TempoTotal), 1)
	require.Len(t, chamado.Andamentos, 1)
	require.Equal(t, domain.AndamentoFinalizacao, chamado.Andamentos[0].Tipo)
	require.Equal(t, "Chamado finalizado: Sinal restabelecido", chamado.Andamentos[0].Descricao)
}

func TestFinalizarTwiceIsConflictAndPreservesOriginal(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 11, "Alice")
	alice := operadorActor("Alice")

	require.NoError(t, f.svc.Finalizar(context.Background(), alice, 11, "Primeira resolução"))

	chamado, err := f.chamados.FindByLinha(context.Background(), 11)
	require.NoError(t, err)
	tempoTotal := *chamado.Tempo.TempoTotal

	err = f.svc.Finalizar(context.Background(), adminActor("Carla"), 11, "Segunda resolução")
	requireCode(t, err, "CONFLICT")

	chamado, err = f.chamados.FindByLinha(context.Background(), 11)
	require.NoError(t, err)
	require.Equal(t, "Primeira resolução", *chamado.Resolucao)
	require.Equal(t, tempoTotal, *chamado.Tempo.TempoTotal)
}

// staleChamadoReads serves reads from a fixed snapshot while writes go to
// the live store, reproducing a concurrent writer landing between the
// service's read and its guarded update.
type staleChamadoReads struct {
	repository.ChamadoRepository
	snapshot domain.Chamado
}

func (r *staleChamadoReads) FindByLinha(context.Context, int64) (*domain.Chamado, error) {
	clone := r.snapshot
	return &clone, nil
}

func (f *chamadoFixture) withStaleReads(snapshot domain.Chamado) *service.ChamadoService {
	return service.NewChamadoService(service.ChamadoServiceDeps{
		Chamados:   &staleChamadoReads{ChamadoRepository: f.chamados, snapshot: snapshot},
		Historicos: f.historicos,
		Activity:   service.NewActivityLogger(f.activities, zap.NewNop()),
		Dispatcher: f.dispatcher,
		Logger:     zap.NewNop(),
	})
}

func TestPegarLostRaceIsForbidden(t *testing.T) {
	f := newChamadoFixture()
	seeded := f.seed(t, 90, "Bob")

	// The read saw the chamado unassigned; Bob's claim commits first and
	// the guarded update must reject Alice.
	snapshot := *seeded
	snapshot.Operador = nil
	svc := f.withStaleReads(snapshot)

	err := svc.Pegar(context.Background(), operadorActor("Alice"), 90)
	requireCode(t, err, "FORBIDDEN")

	chamado, findErr := f.chamados.FindByLinha(context.Background(), 90)
	require.NoError(t, findErr)
	require.Equal(t, "Bob", chamado.OperadorAtual())
	require.Empty(t, chamado.Andamentos)

	registros, histErr := f.historicos.ListByLinha(context.Background(), 90)
	require.NoError(t, histErr)
	require.Empty(t, registros)
}

func TestFinalizarLostRaceIsConflict(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 91, "Alice")

	require.NoError(t, f.svc.Finalizar(context.Background(), operadorActor("Alice"), 91, "Primeira resolução"))

	current, err := f.chamados.FindByLinha(context.Background(), 91)
	require.NoError(t, err)

	// The read predates Alice's finalization; the guard rejects the
	// second write even though the pre-check passed.
	snapshot := *current
	snapshot.Status = "EM ANDAMENTO"
	snapshot.Resolucao = nil
	snapshot.DataFinalizacao = nil
	snapshot.Tempo.Finalizacao = nil
	snapshot.Tempo.TempoTotal = nil
	svc := f.withStaleReads(snapshot)

	err = svc.Finalizar(context.Background(), adminActor("Carla"), 91, "Segunda resolução")
	requireCode(t, err, "CONFLICT")

	chamado, findErr := f.chamados.FindByLinha(context.Background(), 91)
	require.NoError(t, findErr)
	require.Equal(t, "Primeira resolução", *chamado.Resolucao)
	require.Len(t, chamado.Andamentos, 1)
}

func TestStatusThenFinalizarLedger(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 12, "Alice")
	alice := operadorActor("Alice")

	require.NoError(t, f.svc.AtualizarStatus(context.Background(), alice, 12, "EM ANDAMENTO"))
	require.NoError(t, f.svc.Finalizar(context.Background(), alice, 12, "Resolvido"))

	registros, err := f.historicos.ListByLinha(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, registros, 2)

	campos := []string{registros[0].Campo, registros[1].Campo}
	require.Contains(t, campos, domain.CampoStatus)
	require.Contains(t, campos, domain.CampoFinalizacao)
}

func TestTransferirReassignsWithMotivo(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 20, "Alice")

	require.NoError(t, f.svc.Transferir(context.Background(), operadorActor("Alice"), 20, "Bob", "férias"))

	chamado, err := f.chamados.FindByLinha(context.Background(), 20)
	require.NoError(t, err)
	require.Equal(t, "Bob", chamado.OperadorAtual())
	require.Len(t, chamado.Andamentos, 1)
	require.Equal(t, domain.AndamentoTransferencia, chamado.Andamentos[0].Tipo)
	require.Equal(t, "Chamado transferido para Bob. Motivo: férias", chamado.Andamentos[0].Descricao)
	require.Equal(t, "Alice", *chamado.Andamentos[0].OperadorAnterior)
	require.Equal(t, "Bob", *chamado.Andamentos[0].OperadorNovo)

	registros, err := f.historicos.ListByLinha(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, registros, 1)
	require.Equal(t, domain.CampoOperador, registros[0].Campo)
	require.NotNil(t, registros[0].Motivo)
	require.Equal(t, "férias", *registros[0].Motivo)
}

func TestTransferirDoesNotRequireOwnership(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 21, "Alice")

	require.NoError(t, f.svc.Transferir(context.Background(), operadorActor("Bob"), 21, "Davi", ""))

	chamado, err := f.chamados.FindByLinha(context.Background(), 21)
	require.NoError(t, err)
	require.Equal(t, "Davi", chamado.OperadorAtual())
	require.Equal(t, "Chamado transferido para Davi", chamado.Andamentos[0].Descricao)
}

func TestHistoricoWriteRetriesTransientFailures(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 30, "")
	f.historicos.FailTimes = 2
	f.historicos.FailErr = errors.New("transient write error")

	require.NoError(t, f.svc.Pegar(context.Background(), operadorActor("Alice"), 30))

	registros, err := f.historicos.ListByLinha(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, registros, 1)
}

func TestHistoricoWriteFailureSurfacesAfterRetries(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 31, "")
	f.historicos.FailTimes = 3
	f.historicos.FailErr = errors.New("persistent write error")

	err := f.svc.Pegar(context.Background(), operadorActor("Alice"), 31)
	requireCode(t, err, "INTERNAL_ERROR")
}

func TestActivityFailureDoesNotAbortMutation(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 32, "")
	f.activities.FailErr = errors.New("activity store down")

	require.NoError(t, f.svc.Pegar(context.Background(), operadorActor("Alice"), 32))

	chamado, err := f.chamados.FindByLinha(context.Background(), 32)
	require.NoError(t, err)
	require.Equal(t, "Alice", chamado.OperadorAtual())
}

func TestPegarPublishesEvent(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 33, "")

	var received []events.Event
	f.dispatcher.Subscribe(events.EventChamadoAtribuido, func(_ context.Context, event events.Event) error {
		received = append(received, event)
		return nil
	})

	require.NoError(t, f.svc.Pegar(context.Background(), operadorActor("Alice"), 33))
	require.Len(t, received, 1)
	require.Equal(t, int64(33), received[0].Linha)
	require.Equal(t, "Alice", received[0].Actor.Operador)
}

func TestBuscarScopesNonAdminToCarteiras(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 50, "")
	outra := &domain.Chamado{
		Linha:        51,
		Cliente:      "Empresa Beta",
		Carteira:     "B2B Sul",
		Status:       "ABERTO",
		DataAbertura: time.Now().Add(-time.Hour),
		Tempo:        domain.Tempo{Abertura: time.Now().Add(-time.Hour)},
	}
	require.NoError(t, f.chamados.Create(context.Background(), outra))

	result, err := f.svc.Buscar(context.Background(), operadorActor("Alice"), service.BuscaFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Total)
	require.Len(t, result.Chamados, 1)
	require.Equal(t, "B2B Norte", result.Chamados[0].Carteira)

	adminResult, err := f.svc.Buscar(context.Background(), adminActor("Carla"), service.BuscaFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), adminResult.Total)
}

func TestBuscarIntersectsExplicitCarteiraFilter(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 60, "")

	result, err := f.svc.Buscar(context.Background(), operadorActor("Alice"), service.BuscaFilter{
		Carteiras: []string{"B2B Sul"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), result.Total)
	require.Empty(t, result.Chamados)
}

func TestBuscarTotalIgnoresPagination(t *testing.T) {
	f := newChamadoFixture()
	for linha := int64(70); linha < 75; linha++ {
		f.seed(t, linha, "")
	}

	result, err := f.svc.Buscar(context.Background(), adminActor("Carla"), service.BuscaFilter{Skip: 0, Limit: 2})
	require.NoError(t, err)
	require.Len(t, result.Chamados, 2)
	require.Equal(t, int64(5), result.Total)
}

func TestFullLifecycle(t *testing.T) {
	f := newChamadoFixture()
	f.seed(t, 42, "")
	alice := operadorActor("Alice")

	require.NoError(t, f.svc.Pegar(context.Background(), alice, 42))
	require.NoError(t, f.svc.AtualizarStatus(context.Background(), alice, 42, "EM ATENDIMENTO"))
	require.NoError(t, f.svc.Finalizar(context.Background(), alice, 42, "resolved"))

	chamado, err := f.chamados.FindByLinha(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFinalizado, chamado.Status)
	require.Equal(t, "resolved", *chamado.Resolucao)
	require.Len(t, chamado.Andamentos, 3)
	require.Equal(t, domain.AndamentoTransferencia, chamado.Andamentos[0].Tipo)
	require.Equal(t, domain.AndamentoStatus, chamado.Andamentos[1].Tipo)
	require.Equal(t, domain.AndamentoFinalizacao, chamado.Andamentos[2].Tipo)

	registros, err := f.historicos.ListByLinha(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, registros, 3)
}

func TestHistoricoUnknownLinhaIsEmpty(t *testing.T) {
	f := newChamadoFixture()
	registros, err := f.svc.Historico(context.Background(), 999)
	require.NoError(t, err)
	require.Empty(t, registros)
}

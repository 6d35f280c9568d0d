package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/operacoes-b2b/chamado-service/internal/api/dto"
	"github.com/operacoes-b2b/chamado-service/internal/auth"
	"github.com/operacoes-b2b/chamado-service/internal/domain"
	"github.com/operacoes-b2b/chamado-service/internal/service"
	apperrors "github.com/operacoes-b2b/chamado-service/pkg/util"
)

// ChamadosHandler exposes the chamado lifecycle endpoints.
type ChamadosHandler struct {
	service *service.ChamadoService
}

// NewChamadosHandler constructs handler.
func NewChamadosHandler(chamadoService *service.ChamadoService) *ChamadosHandler {
	return &ChamadosHandler{service: chamadoService}
}

// Pegar POST /chamados/pegar.
func (h *ChamadosHandler) Pegar(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.PegarRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Linha <= 0 {
		return apperrors.NewValidationError("linha must be positive", nil)
	}

	if err := h.service.Pegar(c.UserContext(), actor, req.Linha); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"success": true, "linha": req.Linha}})
}

// AdicionarAndamento POST /chamados/andamento.
func (h *ChamadosHandler) AdicionarAndamento(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AndamentoRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Linha <= 0 {
		return apperrors.NewValidationError("linha must be positive", nil)
	}

	if err := h.service.AdicionarAndamento(c.UserContext(), actor, req.Linha, req.Texto); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"success": true, "linha": req.Linha}})
}

// AtualizarStatus PUT /chamados/status.
func (h *ChamadosHandler) AtualizarStatus(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Linha <= 0 {
		return apperrors.NewValidationError("linha must be positive", nil)
	}

	if err := h.service.AtualizarStatus(c.UserContext(), actor, req.Linha, req.Status); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"success": true, "linha": req.Linha, "status": req.Status}})
}

// Finalizar POST /chamados/finalizar.
func (h *ChamadosHandler) Finalizar(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.FinalizarRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Linha <= 0 {
		return apperrors.NewValidationError("linha must be positive", nil)
	}

	if err := h.service.Finalizar(c.UserContext(), actor, req.Linha, req.Resolucao); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"success": true, "linha": req.Linha}})
}

// Transferir POST /chamados/transferir.
func (h *ChamadosHandler) Transferir(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.TransferirRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Linha <= 0 {
		return apperrors.NewValidationError("linha must be positive", nil)
	}

	if err := h.service.Transferir(c.UserContext(), actor, req.Linha, req.Destino, req.Motivo); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"success": true, "linha": req.Linha, "destino": req.Destino}})
}

// Listar GET /chamados.
func (h *ChamadosHandler) Listar(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}

	result, err := h.service.Buscar(c.UserContext(), actor, parseChamadoQuery(c))
	if err != nil {
		return err
	}

	items := make([]dto.ChamadoResponse, 0, len(result.Chamados))
	for i := range result.Chamados {
		items = append(items, chamadoResponse(&result.Chamados[i]))
	}
	return c.JSON(fiber.Map{"data": dto.ChamadoListResponse{
		Chamados: items,
		Total:    result.Total,
		Skip:     result.Skip,
		Limit:    result.Limit,
	}})
}

// BuscarPorLinha GET /chamados/:linha.
func (h *ChamadosHandler) BuscarPorLinha(c *fiber.Ctx) error {
	linha, err := parseLinha(c.Params("linha"))
	if err != nil {
		return err
	}
	chamado, err := h.service.BuscarPorLinha(c.UserContext(), linha)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": chamadoResponse(chamado)})
}

// Historico GET /chamados/historico/:linha.
func (h *ChamadosHandler) Historico(c *fiber.Ctx) error {
	linha, err := parseLinha(c.Params("linha"))
	if err != nil {
		return err
	}
	registros, err := h.service.Historico(c.UserContext(), linha)
	if err != nil {
		return err
	}

	items := make([]dto.HistoricoResponse, 0, len(registros))
	for i := range registros {
		items = append(items, historicoResponse(&registros[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func actorFromContext(c *fiber.Ctx) (service.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return service.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return service.Actor{
		UserID:    principal.User.ID,
		Operador:  principal.User.Operador,
		Role:      principal.User.Role,
		Carteiras: principal.User.Carteiras,
		Meta: domain.ClientMeta{
			IP:        c.IP(),
			UserAgent: c.Get("User-Agent"),
		},
	}, nil
}

func parseLinha(raw string) (int64, error) {
	linha, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || linha <= 0 {
		return 0, apperrors.NewValidationError("linha must be a positive integer", nil)
	}
	return linha, nil
}

func parseChamadoQuery(c *fiber.Ctx) service.BuscaFilter {
	filter := service.BuscaFilter{}
	if operador := c.Query("operador"); operador != "" {
		filter.Operador = &operador
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				filter.Statuses = append(filter.Statuses, trimmed)
			}
		}
	}
	if carteiraStr := c.Query("carteira"); carteiraStr != "" {
		for _, part := range strings.Split(carteiraStr, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				filter.Carteiras = append(filter.Carteiras, trimmed)
			}
		}
	}
	if from := parseTime(c.Query("data_inicio")); from != nil {
		filter.DataInicio = from
	}
	if to := parseTime(c.Query("data_fim")); to != nil {
		filter.DataFim = to
	}
	if busca := c.Query("busca"); busca != "" {
		filter.BuscaGeral = &busca
	}
	filter.Skip = parseInt(c.Query("skip"), 0)
	filter.Limit = parseInt(c.Query("limit"), 50)
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func chamadoResponse(chamado *domain.Chamado) dto.ChamadoResponse {
	andamentos := chamado.Andamentos
	if andamentos == nil {
		andamentos = []domain.Andamento{}
	}
	return dto.ChamadoResponse{
		ID:              chamado.ID,
		Linha:           chamado.Linha,
		Assunto:         chamado.Assunto,
		Descricao:       chamado.Descricao,
		Cliente:         chamado.Cliente,
		Servico:         chamado.Servico,
		Carteira:        chamado.Carteira,
		Cidade:          chamado.Cidade,
		UF:              chamado.UF,
		Regional:        chamado.Regional,
		Status:          chamado.Status,
		Operador:        chamado.Operador,
		Tecnico:         chamado.Tecnico,
		Contrato:        chamado.Contrato,
		Prioridade:      chamado.Prioridade,
		Tags:            chamado.Tags,
		DataAbertura:    chamado.DataAbertura,
		Vencimento:      chamado.Vencimento,
		UltimaEdicao:    chamado.UltimaEdicao,
		EditadoPor:      chamado.EditadoPor,
		Resolucao:       chamado.Resolucao,
		DataFinalizacao: chamado.DataFinalizacao,
		Andamentos:      andamentos,
		Tempo:           chamado.Tempo,
	}
}

func historicoResponse(historico *domain.ChamadoHistorico) dto.HistoricoResponse {
	return dto.HistoricoResponse{
		ID:            historico.ID,
		Linha:         historico.Linha,
		Campo:         historico.Campo,
		ValorAnterior: historico.ValorAnterior,
		ValorNovo:     historico.ValorNovo,
		Operador:      historico.Operador,
		Timestamp:     historico.Timestamp,
		Motivo:        historico.Motivo,
	}
}

package dto

import (
	"time"

	"github.com/operacoes-b2b/chamado-service/internal/domain"
)

// PegarRequest claims a chamado.
type PegarRequest struct {
	Linha int64 `json:"linha"`
}

// AndamentoRequest appends a progress comment.
type AndamentoRequest struct {
	Linha int64  `json:"linha"`
	Texto string `json:"texto"`
}

// StatusRequest changes a chamado status.
type StatusRequest struct {
	Linha  int64  `json:"linha"`
	Status string `json:"status"`
}

// FinalizarRequest closes a chamado.
type FinalizarRequest struct {
	Linha     int64  `json:"linha"`
	Resolucao string `json:"resolucao"`
}

// TransferirRequest reassigns a chamado.
type TransferirRequest struct {
	Linha   int64  `json:"linha"`
	Destino string `json:"destino"`
	Motivo  string `json:"motivo"`
}

// ChamadoResponse is the outward view of a chamado.
type ChamadoResponse struct {
	ID              string             `json:"id"`
	Linha           int64              `json:"linha"`
	Assunto         string             `json:"assunto"`
	Descricao       string             `json:"descricao"`
	Cliente         string             `json:"cliente"`
	Servico         string             `json:"servico"`
	Carteira        string             `json:"carteira"`
	Cidade          string             `json:"cidade"`
	UF              string             `json:"uf"`
	Regional        string             `json:"regional"`
	Status          string             `json:"status"`
	Operador        *string            `json:"operador,omitempty"`
	Tecnico         *string            `json:"tecnico,omitempty"`
	Contrato        *string            `json:"contrato,omitempty"`
	Prioridade      domain.Prioridade  `json:"prioridade"`
	Tags            []string           `json:"tags,omitempty"`
	DataAbertura    time.Time          `json:"dataAbertura"`
	Vencimento      *time.Time         `json:"vencimento,omitempty"`
	UltimaEdicao    time.Time          `json:"ultimaEdicao"`
	EditadoPor      *string            `json:"editadoPor,omitempty"`
	Resolucao       *string            `json:"resolucao,omitempty"`
	DataFinalizacao *time.Time         `json:"dataFinalizacao,omitempty"`
	Andamentos      []domain.Andamento `json:"andamentos"`
	Tempo           domain.Tempo       `json:"tempo"`
}

// ChamadoListResponse is one listing page.
type ChamadoListResponse struct {
	Chamados []ChamadoResponse `json:"chamados"`
	Total    int64             `json:"total"`
	Skip     int               `json:"skip"`
	Limit    int               `json:"limit"`
}

// HistoricoResponse is one audit-ledger record.
type HistoricoResponse struct {
	ID            string    `json:"id"`
	Linha         int64     `json:"linha"`
	Campo         string    `json:"campo"`
	ValorAnterior any       `json:"valorAnterior"`
	ValorNovo     any       `json:"valorNovo"`
	Operador      string    `json:"operador"`
	Timestamp     time.Time `json:"timestamp"`
	Motivo        *string   `json:"motivo,omitempty"`
}

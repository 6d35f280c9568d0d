package domain

import "time"

// StatusFinalizado is the single terminal status marker. Other statuses are
// free-form labels coming from the operational spreadsheet.
const StatusFinalizado = "FINALIZADO"

// Prioridade enumerates chamado urgency levels.
type Prioridade string

const (
	PrioridadeBaixa   Prioridade = "Baixa"
	PrioridadeMedia   Prioridade = "Média"
	PrioridadeAlta    Prioridade = "Alta"
	PrioridadeCritica Prioridade = "Crítica"
)

// AndamentoTipo captures the kind of a progress entry.
type AndamentoTipo string

const (
	AndamentoComentario    AndamentoTipo = "comentario"
	AndamentoStatus        AndamentoTipo = "status"
	AndamentoTransferencia AndamentoTipo = "transferencia"
	AndamentoFinalizacao   AndamentoTipo = "finalizacao"
)

// Andamento is an immutable, append-only progress entry on a chamado.
type Andamento struct {
	ID               string        `json:"id"`
	Timestamp        time.Time     `json:"timestamp"`
	Operador         string        `json:"operador"`
	Descricao        string        `json:"descricao"`
	Tipo             AndamentoTipo `json:"tipo"`
	StatusAnterior   *string       `json:"statusAnterior,omitempty"`
	StatusNovo       *string       `json:"statusNovo,omitempty"`
	OperadorAnterior *string       `json:"operadorAnterior,omitempty"`
	OperadorNovo     *string       `json:"operadorNovo,omitempty"`
}

// Tempo tracks elapsed-time checkpoints of a chamado. TempoTotal is derived
// at finalization as whole minutes between Abertura and Finalizacao.
type Tempo struct {
	Abertura            time.Time  `json:"abertura"`
	PrimeiroAtendimento *time.Time `json:"primeiroAtendimento,omitempty"`
	UltimaInteracao     *time.Time `json:"ultimaInteracao,omitempty"`
	Finalizacao         *time.Time `json:"finalizacao,omitempty"`
	TempoTotal          *int64     `json:"tempoTotal,omitempty"`
}

// Chamado is the aggregate for a support ticket, keyed by the spreadsheet
// line number (Linha), which is unique and immutable after creation.
type Chamado struct {
	ID              string
	Linha           int64
	Assunto         string
	Descricao       string
	Cliente         string
	Servico         string
	Carteira        string
	Cidade          string
	UF              string
	Regional        string
	Status          string
	Operador        *string
	Tecnico         *string
	Contrato        *string
	Prioridade      Prioridade
	Tags            []string
	DataAbertura    time.Time
	Vencimento      *time.Time
	UltimaEdicao    time.Time
	EditadoPor      *string
	Resolucao       *string
	DataFinalizacao *time.Time
	Andamentos      []Andamento
	Tempo           Tempo
}

// Finalizado reports whether the chamado reached the terminal state.
func (c *Chamado) Finalizado() bool {
	return c.DataFinalizacao != nil
}

// OperadorAtual returns the owning operator name or "" when unassigned.
func (c *Chamado) OperadorAtual() string {
	if c.Operador == nil {
		return ""
	}
	return *c.Operador
}

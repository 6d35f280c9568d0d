package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventChamadoAtribuido    EventType = "chamado_atribuido"
	EventAndamentoAdicionado EventType = "andamento_adicionado"
	EventStatusAlterado      EventType = "status_alterado"
	EventChamadoTransferido  EventType = "chamado_transferido"
	EventChamadoFinalizado   EventType = "chamado_finalizado"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID   string `json:"user_id"`
	Operador string `json:"operador"`
}

// Event represents a domain event emitted by the lifecycle engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Linha     int64       `json:"linha"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ChamadoAtribuidoPayload payload.
type ChamadoAtribuidoPayload struct {
	Operador string `json:"operador"`
}

// AndamentoAdicionadoPayload payload.
type AndamentoAdicionadoPayload struct {
	Descricao string `json:"descricao"`
}

// StatusAlteradoPayload payload.
type StatusAlteradoPayload struct {
	StatusAnterior string `json:"status_anterior"`
	StatusNovo     string `json:"status_novo"`
}

// ChamadoTransferidoPayload payload.
type ChamadoTransferidoPayload struct {
	OperadorAnterior string `json:"operador_anterior"`
	OperadorNovo     string `json:"operador_novo"`
	Motivo           string `json:"motivo"`
}

// ChamadoFinalizadoPayload payload.
type ChamadoFinalizadoPayload struct {
	Resolucao  string `json:"resolucao"`
	TempoTotal int64  `json:"tempo_total_minutos"`
}

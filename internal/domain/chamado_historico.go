package domain

import "time"

// ChamadoHistorico is one audit-ledger record for a single field-level
// change. Lifecycle operations declare the fields they changed explicitly;
// there is no generic diffing.
type ChamadoHistorico struct {
	ID            string
	ChamadoID     string
	Linha         int64
	Campo         string
	ValorAnterior any
	ValorNovo     any
	Operador      string
	Timestamp     time.Time
	Motivo        *string
}

// Audited field names used by the lifecycle engine. Finalization changes
// status, resolucao and dataFinalizacao together and is recorded as one
// grouped entry.
const (
	CampoOperador    = "operador"
	CampoStatus      = "status"
	CampoFinalizacao = "finalizacao"
)

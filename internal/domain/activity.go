package domain

import "time"

// Activity action tags.
const (
	AcaoLoginSucesso       = "login_sucesso"
	AcaoLoginFalhou        = "login_falhou"
	AcaoLogout             = "logout"
	AcaoPegarChamado       = "pegar_chamado"
	AcaoAdicionarAndamento = "adicionar_andamento"
	AcaoAtualizarStatus    = "atualizar_status"
	AcaoFinalizarChamado   = "finalizar_chamado"
	AcaoTransferirChamado  = "transferir_chamado"
)

// Activity is a best-effort record of a user action. Writes never block or
// abort the triggering operation.
type Activity struct {
	ID        string
	UserID    string
	Acao      string
	Detalhes  map[string]any
	Timestamp time.Time
	IP        string
	UserAgent string
}

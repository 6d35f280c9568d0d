package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/operacoes-b2b/chamado-service/internal/config"
	"github.com/operacoes-b2b/chamado-service/internal/domain"
	"github.com/operacoes-b2b/chamado-service/internal/events"
	"github.com/operacoes-b2b/chamado-service/internal/sheets"
)

// SheetSyncService mirrors lifecycle changes back to the operational
// spreadsheet. Chamado linha N maps to sheet row N+1 (row 1 is the header).
// The sheet is a mirror, not the authority; sync failures are logged and
// dropped.
type SheetSyncService struct {
	gateway sheets.Gateway
	cfg     config.SheetsConfig
	logger  *zap.Logger
}

// NewSheetSyncService builds the service.
func NewSheetSyncService(gateway sheets.Gateway, cfg config.SheetsConfig, logger *zap.Logger) *SheetSyncService {
	return &SheetSyncService{gateway: gateway, cfg: cfg, logger: logger}
}

// Register subscribes to the events that change sheet-visible cells.
func (s *SheetSyncService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventChamadoAtribuido, s.handle)
	dispatcher.Subscribe(events.EventStatusAlterado, s.handle)
	dispatcher.Subscribe(events.EventChamadoTransferido, s.handle)
	dispatcher.Subscribe(events.EventChamadoFinalizado, s.handle)
}

func (s *SheetSyncService) handle(ctx context.Context, event events.Event) error {
	row := int(event.Linha) + 1

	switch event.Type {
	case events.EventChamadoAtribuido:
		payload, ok := event.Payload.(events.ChamadoAtribuidoPayload)
		if !ok {
			return nil
		}
		s.updateCell(ctx, row, s.cfg.OperadorColumn, payload.Operador)
	case events.EventStatusAlterado:
		payload, ok := event.Payload.(events.StatusAlteradoPayload)
		if !ok {
			return nil
		}
		s.updateCell(ctx, row, s.cfg.StatusColumn, payload.StatusNovo)
	case events.EventChamadoTransferido:
		payload, ok := event.Payload.(events.ChamadoTransferidoPayload)
		if !ok {
			return nil
		}
		s.updateCell(ctx, row, s.cfg.OperadorColumn, payload.OperadorNovo)
	case events.EventChamadoFinalizado:
		s.updateCell(ctx, row, s.cfg.StatusColumn, domain.StatusFinalizado)
	}
	return nil
}

func (s *SheetSyncService) updateCell(ctx context.Context, row, column int, value string) {
	if err := s.gateway.UpdateCell(ctx, row, column, value); err != nil {
		s.logger.Warn("sheet sync failed",
			zap.Int("row", row),
			zap.Int("column", column),
			zap.Error(err))
	}
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/operacoes-b2b/chamado-service/internal/config"
	"github.com/operacoes-b2b/chamado-service/internal/events"
)

// NotificationService forwards lifecycle events to an optional webhook.
// Delivery is best effort; failures are logged and dropped.
type NotificationService struct {
	cfg    config.NotificationConfig
	http   *http.Client
	logger *zap.Logger
}

// NewNotificationService builds the service.
func NewNotificationService(cfg config.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		cfg:    cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Register subscribes to the lifecycle events worth notifying about.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventChamadoAtribuido,
		events.EventStatusAlterado,
		events.EventChamadoTransferido,
		events.EventChamadoFinalizado,
	} {
		dispatcher.Subscribe(eventType, s.handle)
	}
}

func (s *NotificationService) handle(ctx context.Context, event events.Event) error {
	s.logger.Info("chamado event",
		zap.String("type", string(event.Type)),
		zap.Int64("linha", event.Linha),
		zap.String("operador", event.Actor.Operador))

	if s.cfg.WebhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("notification payload marshal failed", zap.Error(err))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		s.logger.Warn("notification request build failed", zap.Error(err))
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Warn("notification delivery failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Warn("notification rejected", zap.Int("status", resp.StatusCode))
	}
	return nil
}

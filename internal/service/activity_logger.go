package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/operacoes-b2b/chamado-service/internal/domain"
	"github.com/operacoes-b2b/chamado-service/internal/repository"
)

// ActivityLogger writes best-effort activity records. A failed write is
// logged and dropped; it never aborts the triggering operation.
type ActivityLogger struct {
	activities repository.ActivityRepository
	logger     *zap.Logger
}

// NewActivityLogger builds the logger.
func NewActivityLogger(activities repository.ActivityRepository, logger *zap.Logger) *ActivityLogger {
	return &ActivityLogger{activities: activities, logger: logger}
}

// Log records the action for the user.
func (l *ActivityLogger) Log(ctx context.Context, userID, acao string, detalhes map[string]any, meta domain.ClientMeta) {
	if l == nil || l.activities == nil {
		return
	}
	activity := &domain.Activity{
		UserID:    userID,
		Acao:      acao,
		Detalhes:  detalhes,
		Timestamp: time.Now(),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}
	if err := l.activities.Log(ctx, activity); err != nil {
		l.logger.Warn("activity log write failed",
			zap.String("user_id", userID),
			zap.String("acao", acao),
			zap.Error(err))
	}
}

package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/operacoes-b2b/chamado-service/internal/repository"
)

// SessionSweeper periodically deactivates expired sessions so token lookups
// stay cheap and the session table reflects reality.
type SessionSweeper struct {
	sessions repository.SessionRepository
	interval time.Duration
	logger   *zap.Logger
}

// NewSessionSweeper builds a sweeper. Interval defaults to 15 minutes.
func NewSessionSweeper(sessions repository.SessionRepository, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SessionSweeper{sessions: sessions, interval: interval, logger: logger}
}

// Run sweeps on the configured interval until the context is canceled.
func (w *SessionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SessionSweeper) sweep(ctx context.Context) {
	swept, err := w.sessions.DeactivateExpired(ctx, time.Now())
	if err != nil {
		w.logger.Warn("session sweep failed", zap.Error(err))
		return
	}
	if swept > 0 {
		w.logger.Info("expired sessions deactivated", zap.Int64("count", swept))
	}
}

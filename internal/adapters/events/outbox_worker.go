package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/application"
)

// OutboxWorker drains the settlement outbox on a fixed cadence. Routing by
// event class (domain/analytics to the broker, ops to the anchor client)
// lives in the service; the worker only drives the loop.
type OutboxWorker struct {
	logger   *slog.Logger
	service  *application.Service
	interval time.Duration
}

func NewOutboxWorker(logger *slog.Logger, service *application.Service, interval time.Duration) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxWorker{logger: logger, service: service, interval: interval}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.service.FlushOutbox(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "flush_outbox",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

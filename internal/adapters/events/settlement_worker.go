package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
)

// SettlementWorker drives the batch pipeline for a locally operated
// sequencer: it polls the chain head, commits whenever the trigger allows,
// and finalizes its own batches once their challenge window elapses.
// Preconditions surface as errors rather than waits, so the worker simply
// retries on the next tick.
type SettlementWorker struct {
	logger   *slog.Logger
	service  *application.Service
	actor    application.Actor
	interval time.Duration

	open map[uint64]bool
}

func NewSettlementWorker(logger *slog.Logger, service *application.Service, sequencerID string, interval time.Duration) *SettlementWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &SettlementWorker{
		logger:  logger,
		service: service,
		actor: application.Actor{
			SubjectID: sequencerID,
			Role:      application.RoleSequencer,
		},
		interval: interval,
		open:     make(map[uint64]bool),
	}
}

func (w *SettlementWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "settlement iteration failed",
				"module", "events.settlement_worker",
				"layer", "adapter",
				"operation", "process_once",
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

func (w *SettlementWorker) processOnce(ctx context.Context) error {
	head, err := w.service.GetChainHead(ctx, w.actor)
	if err != nil {
		return err
	}
	if head.CanSubmit {
		batch, err := w.service.CommitBatch(ctx, w.actor)
		switch {
		case err == nil:
			w.open[batch.BatchID] = true
			w.logger.InfoContext(ctx, "batch committed",
				"module", "events.settlement_worker",
				"layer", "adapter",
				"operation", "commit_batch",
				"outcome", "success",
				"batch_id", batch.BatchID,
				"count", batch.Count,
			)
		case errors.Is(err, domain.ErrBatchNotReady), errors.Is(err, domain.ErrSequencerInactive):
			// lost the race or not bonded yet; retry next tick
		default:
			return err
		}
	}
	return w.finalizeDue(ctx)
}

func (w *SettlementWorker) finalizeDue(ctx context.Context) error {
	for batchID := range w.open {
		_, err := w.service.FinalizeBatch(ctx, w.actor, batchID)
		switch {
		case err == nil:
			delete(w.open, batchID)
			w.logger.InfoContext(ctx, "batch finalized",
				"module", "events.settlement_worker",
				"layer", "adapter",
				"operation", "finalize_batch",
				"outcome", "success",
				"batch_id", batchID,
			)
		case errors.Is(err, domain.ErrChallengeWindowOpen), errors.Is(err, domain.ErrBatchChallenged):
			// window still running or under challenge; keep tracking
		case errors.Is(err, domain.ErrBatchFinalized), errors.Is(err, domain.ErrBatchRejected), errors.Is(err, domain.ErrNotFound):
			delete(w.open, batchID)
		default:
			return err
		}
	}
	return nil
}

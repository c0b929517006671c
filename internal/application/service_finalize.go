package application

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
)

// FinalizeBatch marks a batch final after its challenge window has elapsed
// with no open challenge standing. Finalization is terminal: the batch and
// every dispute it carries become immutable.
func (s *Service) FinalizeBatch(ctx context.Context, actor Actor, batchID uint64) (domain.Batch, error) {
	if err := s.authorize(actor, CapFinalizeBatch); err != nil {
		return domain.Batch{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return domain.Batch{}, err
	}
	if batch.Finalized {
		return domain.Batch{}, domain.ErrBatchFinalized
	}
	if batch.Rejected {
		return domain.Batch{}, domain.ErrBatchRejected
	}
	if batch.Challenged {
		return domain.Batch{}, domain.ErrBatchChallenged
	}
	now := s.nowFn()
	if now.Before(batch.ChallengeDeadline(s.cfg.Params.ChallengePeriod)) {
		return domain.Batch{}, domain.ErrChallengeWindowOpen
	}

	batch.Finalized = true
	batch.FinalizedAt = &now

	// the batch flag and its dispute transitions finalize as one unit
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.batches.Update(ctx, batch); err != nil {
			return err
		}
		disputes, err := s.disputes.ListByBatchID(ctx, batch.BatchID)
		if err != nil {
			return err
		}
		for _, dispute := range disputes {
			if dispute.Status != domain.DisputeStatusActive {
				continue
			}
			if err := domain.ValidateStatusTransition(dispute.Status, domain.DisputeStatusFinalized); err != nil {
				return err
			}
			dispute.Status = domain.DisputeStatusFinalized
			dispute.UpdatedAt = now
			if err := s.disputes.Update(ctx, dispute); err != nil {
				return err
			}
		}
		if err := s.enqueueAnchorBatchFinalized(ctx, batch, actor.RequestID, now); err != nil {
			return err
		}
		return s.enqueueBatchFinalized(ctx, batch, len(disputes), actor.RequestID, now)
	})
	if err != nil {
		return domain.Batch{}, err
	}
	return batch, nil
}

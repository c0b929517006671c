package application

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
)

// ChainHead reports the hash-chain head together with the live trigger state.
func (s *Service) GetChainHead(ctx context.Context, actor Actor) (ChainHead, error) {
	if actor.SubjectID == "" {
		return ChainHead{}, domain.ErrUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.chainState.Get(ctx)
	if err != nil {
		return ChainHead{}, err
	}
	size, err := s.pending.Size(ctx)
	if err != nil {
		return ChainHead{}, err
	}
	return ChainHead{
		State:       state,
		PendingSize: size,
		CanSubmit:   s.cfg.Params.CanSubmitBatch(size, state.LastBatchAt, s.nowFn()),
	}, nil
}

// CommitBatch drains up to MaxBatchSize oldest pending disputes into a new
// merkle-rooted batch and chains its state root onto the predecessor. The
// caller must be a registered, active sequencer and the trigger must hold.
func (s *Service) CommitBatch(ctx context.Context, actor Actor) (domain.Batch, error) {
	if err := s.authorize(actor, CapCommitBatch); err != nil {
		return domain.Batch{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.sequencers.GetByID(ctx, actor.SubjectID)
	if err != nil || !seq.Active {
		return domain.Batch{}, domain.ErrSequencerInactive
	}
	state, err := s.chainState.Get(ctx)
	if err != nil {
		return domain.Batch{}, err
	}
	size, err := s.pending.Size(ctx)
	if err != nil {
		return domain.Batch{}, err
	}
	now := s.nowFn()
	if !s.cfg.Params.CanSubmitBatch(size, state.LastBatchAt, now) {
		return domain.Batch{}, domain.ErrBatchNotReady
	}

	entries, err := s.pending.OldestN(ctx, s.cfg.Params.MaxBatchSize)
	if err != nil {
		return domain.Batch{}, err
	}
	if len(entries) == 0 {
		return domain.Batch{}, domain.ErrBatchNotReady
	}

	leaves := make([]domain.Hash, len(entries))
	positions := make([]uint64, len(entries))
	for i, entry := range entries {
		leaves[i] = entry.DataHash
		positions[i] = entry.Position
	}
	disputeRoot := domain.MerkleRoot(leaves)
	stateRoot := domain.ComputeStateRoot(state.LastStateRoot, disputeRoot, now)

	batch := domain.Batch{
		StateRoot:      stateRoot,
		DisputeRoot:    disputeRoot,
		Count:          len(entries),
		FirstDisputeID: entries[0].DisputeID,
		LastDisputeID:  entries[len(entries)-1].DisputeID,
		Submitter:      seq.SequencerID,
		SubmittedAt:    now,
	}

	// batch insert, dispute assignments, queue drain and chain-head advance
	// land together or not at all
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		batchID, err := s.batches.Create(ctx, batch)
		if err != nil {
			return err
		}
		batch.BatchID = batchID

		for _, entry := range entries {
			dispute, err := s.disputes.GetByID(ctx, entry.DisputeID)
			if err != nil {
				return err
			}
			if dispute.BatchID != nil {
				return domain.ErrBatchRefAssigned
			}
			if err := domain.ValidateStatusTransition(dispute.Status, domain.DisputeStatusActive); err != nil {
				return err
			}
			dispute.Status = domain.DisputeStatusActive
			dispute.BatchID = &batchID
			dispute.UpdatedAt = now
			if err := s.disputes.Update(ctx, dispute); err != nil {
				return err
			}
		}
		if err := s.pending.Remove(ctx, positions); err != nil {
			return err
		}
		if err := s.chainState.Update(ctx, domain.ChainState{LastBatchID: batchID, LastStateRoot: stateRoot, LastBatchAt: now}); err != nil {
			return err
		}
		if err := s.enqueueAnchorBatchReceived(ctx, batch, actor.RequestID, now); err != nil {
			return err
		}
		return s.enqueueBatchCommitted(ctx, batch, actor.RequestID, now)
	})
	if err != nil {
		return domain.Batch{}, err
	}
	return batch, nil
}

func (s *Service) GetBatch(ctx context.Context, actor Actor, batchID uint64) (domain.Batch, error) {
	if actor.SubjectID == "" {
		return domain.Batch{}, domain.ErrUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches.GetByID(ctx, batchID)
}

func (s *Service) GetDispute(ctx context.Context, actor Actor, disputeID uint64) (domain.Dispute, error) {
	if actor.SubjectID == "" {
		return domain.Dispute{}, domain.ErrUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disputes.GetByID(ctx, disputeID)
}

func (s *Service) ListLedgerEntries(ctx context.Context, actor Actor, account string) ([]domain.LedgerEntry, error) {
	if actor.SubjectID == "" {
		return nil, domain.ErrUnauthorized
	}
	if account == "" {
		return nil, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledger == nil {
		return nil, nil
	}
	return s.ledger.ListByAccount(ctx, account)
}

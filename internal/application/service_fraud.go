package application

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
)

// ChallengeBatch files a bonded fraud proof against a committed batch. The
// batch must still be inside its challenge window; filing blocks
// finalization until every challenge is resolved.
func (s *Service) ChallengeBatch(ctx context.Context, actor Actor, input ChallengeBatchInput) (domain.FraudProof, error) {
	if err := s.authorize(actor, CapChallengeBatch); err != nil {
		return domain.FraudProof{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if input.ClaimedRoot.IsZero() {
		return domain.FraudProof{}, domain.ErrInvalidInput
	}
	if input.BondAttached < s.cfg.Params.FraudProofBond {
		return domain.FraudProof{}, domain.ErrInsufficientBond
	}
	batch, err := s.batches.GetByID(ctx, input.BatchID)
	if err != nil {
		return domain.FraudProof{}, err
	}
	if batch.Finalized {
		return domain.FraudProof{}, domain.ErrBatchFinalized
	}
	if batch.Rejected {
		return domain.FraudProof{}, domain.ErrBatchRejected
	}
	now := s.nowFn()
	if !now.Before(batch.ChallengeDeadline(s.cfg.Params.ChallengePeriod)) {
		return domain.FraudProof{}, domain.ErrChallengeWindowClosed
	}
	if input.DisputeID != nil {
		if *input.DisputeID < batch.FirstDisputeID || *input.DisputeID > batch.LastDisputeID {
			return domain.FraudProof{}, domain.ErrInvalidInput
		}
	}

	proof := domain.FraudProof{
		BatchID:     batch.BatchID,
		DisputeID:   input.DisputeID,
		ClaimedRoot: input.ClaimedRoot,
		ProofPath:   input.ProofPath,
		Evidence:    input.Evidence,
		Challenger:  actor.SubjectID,
		Bond:        s.cfg.Params.FraudProofBond,
		FiledAt:     now,
	}
	proofID, err := s.proofs.Create(ctx, proof)
	if err != nil {
		return domain.FraudProof{}, err
	}
	proof.ProofID = proofID

	if !batch.Challenged {
		batch.Challenged = true
		if err := s.batches.Update(ctx, batch); err != nil {
			return domain.FraudProof{}, err
		}
	}
	s.appendLedgerEntry(ctx, actor.SubjectID, domain.LedgerEntryBondPosted, proof.Bond, "proof", proofID)
	_ = s.enqueueBatchChallenged(ctx, batch, proof, actor.RequestID, now)
	return proof, nil
}

func (s *Service) GetFraudProof(ctx context.Context, actor Actor, proofID uint64) (domain.FraudProof, error) {
	if actor.SubjectID == "" {
		return domain.FraudProof{}, domain.ErrUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proofs.GetByID(ctx, proofID)
}

// ResolveFraudProof adjudicates a filed challenge. Arbitrator-gated.
//
// Confirmed fraud slashes the submitting sequencer, pays the challenger
// half the slashed bond plus its own bond back, marks the batch
// sticky-rejected and reverts every dispute the batch carried. An
// unconfirmed challenge refunds 90% of the bond; once the batch has no
// unresolved challenges left and none confirmed, it becomes finalizable
// again.
func (s *Service) ResolveFraudProof(ctx context.Context, actor Actor, proofID uint64, confirmed bool) (domain.FraudProof, error) {
	if err := s.authorize(actor, CapResolveFraud); err != nil {
		return domain.FraudProof{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	proof, err := s.proofs.GetByID(ctx, proofID)
	if err != nil {
		return domain.FraudProof{}, err
	}
	if proof.Resolved {
		return domain.FraudProof{}, domain.ErrProofResolved
	}
	batch, err := s.batches.GetByID(ctx, proof.BatchID)
	if err != nil {
		return domain.FraudProof{}, err
	}

	now := s.nowFn()
	proof.Resolved = true
	proof.Confirmed = confirmed
	proof.ResolvedAt = &now

	// the proof verdict and its fallout are one atomic settlement step
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.proofs.Update(ctx, proof); err != nil {
			return err
		}
		if confirmed {
			return s.confirmFraud(ctx, actor, batch, proof, now)
		}

		refund, fee := domain.UnconfirmedRefund(proof.Bond)
		s.appendLedgerEntry(ctx, proof.Challenger, domain.LedgerEntryBondRefund, refund, "proof", proof.ProofID)
		s.appendLedgerEntry(ctx, s.cfg.ServiceName, domain.LedgerEntryDeterrenceFee, fee, "proof", proof.ProofID)

		open, anyConfirmed, err := s.challengeStanding(ctx, batch.BatchID)
		if err != nil {
			return err
		}
		if open == 0 && !anyConfirmed && batch.Challenged {
			batch.Challenged = false
			if err := s.batches.Update(ctx, batch); err != nil {
				return err
			}
		}
		return s.enqueueFraudProofResolved(ctx, proof, refund, fee, actor.RequestID, now)
	})
	if err != nil {
		return domain.FraudProof{}, err
	}
	return proof, nil
}

func (s *Service) confirmFraud(ctx context.Context, actor Actor, batch domain.Batch, proof domain.FraudProof, now time.Time) error {
	slashed, err := s.slashSequencer(ctx, batch.Submitter, batch.BatchID)
	if err != nil {
		return err
	}
	payout := domain.ChallengerPayout(slashed, proof.Bond)
	s.appendLedgerEntry(ctx, proof.Challenger, domain.LedgerEntryChallengerPayout, payout, "proof", proof.ProofID)

	batch.Rejected = true
	if err := s.batches.Update(ctx, batch); err != nil {
		return err
	}

	reverted := 0
	disputes, err := s.disputes.ListByBatchID(ctx, batch.BatchID)
	if err != nil {
		return err
	}
	for _, dispute := range disputes {
		if dispute.Status != domain.DisputeStatusActive {
			continue
		}
		dispute.Status = domain.DisputeStatusRejected
		dispute.UpdatedAt = now
		if err := s.disputes.Update(ctx, dispute); err != nil {
			return err
		}
		reverted++
	}
	return s.enqueueBatchRejected(ctx, batch, proof, slashed, payout, reverted, actor.RequestID, now)
}

// challengeStanding counts unresolved challenges and whether any challenge
// against the batch has been confirmed.
func (s *Service) challengeStanding(ctx context.Context, batchID uint64) (open int, anyConfirmed bool, err error) {
	proofs, err := s.proofs.ListByBatchID(ctx, batchID)
	if err != nil {
		return 0, false, err
	}
	for _, p := range proofs {
		if !p.Resolved {
			open++
		} else if p.Confirmed {
			anyConfirmed = true
		}
	}
	return open, anyConfirmed, nil
}

package application

import (
	"context"
	"errors"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
)

// RegisterSequencer bonds the caller as a batch operator. The first active
// registrant becomes primary.
func (s *Service) RegisterSequencer(ctx context.Context, actor Actor, input RegisterSequencerInput) (domain.Sequencer, error) {
	if err := s.authorize(actor, CapRegisterSequence); err != nil {
		return domain.Sequencer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if input.Bond < s.cfg.Params.SequencerBond {
		return domain.Sequencer{}, domain.ErrInsufficientBond
	}
	existing, err := s.sequencers.GetByID(ctx, actor.SubjectID)
	switch {
	case err == nil && existing.Active:
		return domain.Sequencer{}, domain.ErrConflict
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return domain.Sequencer{}, err
	}

	now := s.nowFn()
	seq := domain.Sequencer{
		SequencerID:  actor.SubjectID,
		BondAmount:   input.Bond,
		Active:       true,
		RegisteredAt: now,
	}
	active, err := s.sequencers.ListActive(ctx)
	if err != nil {
		return domain.Sequencer{}, err
	}
	seq.Primary = !hasPrimary(active)

	if existing.SequencerID != "" {
		// re-registration after a clean exit re-uses the row
		seq.RegisteredAt = now
		if err := s.sequencers.Update(ctx, seq); err != nil {
			return domain.Sequencer{}, err
		}
	} else if err := s.sequencers.Create(ctx, seq); err != nil {
		return domain.Sequencer{}, err
	}
	s.appendLedgerEntry(ctx, actor.SubjectID, domain.LedgerEntryBondPosted, input.Bond, "sequencer", 0)
	return seq, nil
}

// ExitSequencer returns the bond and deactivates. Refused while the caller
// still has any batch that is neither finalized nor rejected, so a slashable
// operator cannot run off with its bond mid-window.
func (s *Service) ExitSequencer(ctx context.Context, actor Actor) (domain.Sequencer, error) {
	if err := s.authorize(actor, CapRegisterSequence); err != nil {
		return domain.Sequencer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.sequencers.GetByID(ctx, actor.SubjectID)
	if err != nil {
		return domain.Sequencer{}, err
	}
	if !seq.Active {
		return domain.Sequencer{}, domain.ErrSequencerInactive
	}
	busy, err := s.batches.HasUnresolvedBySubmitter(ctx, seq.SequencerID)
	if err != nil {
		return domain.Sequencer{}, err
	}
	if busy {
		return domain.Sequencer{}, domain.ErrSequencerBusy
	}

	now := s.nowFn()
	refund := seq.BondAmount
	seq.BondAmount = 0
	seq.Active = false
	seq.Primary = false
	seq.ExitedAt = &now
	if err := s.sequencers.Update(ctx, seq); err != nil {
		return domain.Sequencer{}, err
	}
	s.appendLedgerEntry(ctx, actor.SubjectID, domain.LedgerEntryBondExit, refund, "sequencer", 0)
	if err := s.reassignPrimary(ctx); err != nil {
		return domain.Sequencer{}, err
	}
	return seq, nil
}

func (s *Service) ListSequencers(ctx context.Context, actor Actor) ([]domain.Sequencer, error) {
	if actor.SubjectID == "" {
		return nil, domain.ErrUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequencers.ListActive(ctx)
}

// slashSequencer zeroes the bond and deactivates; only fraud resolution
// calls it. Returns the forfeited amount.
func (s *Service) slashSequencer(ctx context.Context, sequencerID string, batchID uint64) (int64, error) {
	seq, err := s.sequencers.GetByID(ctx, sequencerID)
	if err != nil {
		return 0, err
	}
	slashed := seq.BondAmount
	seq.BondAmount = 0
	seq.Active = false
	seq.Primary = false
	if err := s.sequencers.Update(ctx, seq); err != nil {
		return 0, err
	}
	if slashed > 0 {
		s.appendLedgerEntry(ctx, sequencerID, domain.LedgerEntrySlash, slashed, "batch", batchID)
	}
	if err := s.reassignPrimary(ctx); err != nil {
		return 0, err
	}
	return slashed, nil
}

func (s *Service) reassignPrimary(ctx context.Context) error {
	active, err := s.sequencers.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(active) == 0 || hasPrimary(active) {
		return nil
	}
	// oldest registration inherits the primary slot
	next := active[0]
	for _, candidate := range active[1:] {
		if candidate.RegisteredAt.Before(next.RegisteredAt) {
			next = candidate
		}
	}
	next.Primary = true
	return s.sequencers.Update(ctx, next)
}

func hasPrimary(sequencers []domain.Sequencer) bool {
	for _, seq := range sequencers {
		if seq.Primary {
			return true
		}
	}
	return false
}

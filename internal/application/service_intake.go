package application

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
)

// SubmitDispute admits one dispute into the pending queue and assigns the
// next monotonic ID. The attached value must cover the declared stake.
func (s *Service) SubmitDispute(ctx context.Context, actor Actor, input SubmitDisputeInput) (domain.Dispute, error) {
	if err := s.authorize(actor, CapSubmitDispute); err != nil {
		return domain.Dispute{}, err
	}
	if err := s.requireIdempotencyKey(actor); err != nil {
		return domain.Dispute{}, err
	}
	requestHash := hashJSON(input)
	if cached, ok, err := getIdempotent[domain.Dispute](ctx, s, actor.IdempotencyKey, requestHash); err != nil {
		return domain.Dispute{}, err
	} else if ok {
		return cached, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateDisputeEntry(input.InitiatorRef, input.CounterpartyRef, input.Stake); err != nil {
		return domain.Dispute{}, err
	}
	if input.ValueAttached < input.Stake {
		return domain.Dispute{}, domain.ErrInsufficientStake
	}
	if err := s.requireIntakeOpen(ctx); err != nil {
		return domain.Dispute{}, err
	}
	dataHash := domain.DisputeDataHash(input.InitiatorRef, input.CounterpartyRef, input.EvidenceRoot, input.Stake)
	if err := s.requireNoOpenDuplicate(ctx, dataHash); err != nil {
		return domain.Dispute{}, err
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.Dispute{}, err
	}

	dispute, err := s.admitDispute(ctx, actor, input.InitiatorRef, input.CounterpartyRef, input.EvidenceRoot, input.Stake, dataHash)
	if err != nil {
		return domain.Dispute{}, err
	}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 201, dispute)
	return dispute, nil
}

// SubmitDisputeBatch is the vectorized intake path. All entries are
// validated, deduplicated and funded before the first one is admitted:
// a rejection leaves nothing partially queued.
func (s *Service) SubmitDisputeBatch(ctx context.Context, actor Actor, input SubmitDisputeBatchInput) ([]domain.Dispute, error) {
	if err := s.authorize(actor, CapSubmitDispute); err != nil {
		return nil, err
	}
	if err := s.requireIdempotencyKey(actor); err != nil {
		return nil, err
	}
	requestHash := hashJSON(input)
	if cached, ok, err := getIdempotent[[]domain.Dispute](ctx, s, actor.IdempotencyKey, requestHash); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(input.InitiatorRefs)
	if n == 0 || len(input.CounterpartyRefs) != n || len(input.EvidenceRoots) != n || len(input.Stakes) != n {
		return nil, domain.ErrInvalidInput
	}
	var totalStake int64
	for i := 0; i < n; i++ {
		if err := s.validateDisputeEntry(input.InitiatorRefs[i], input.CounterpartyRefs[i], input.Stakes[i]); err != nil {
			return nil, err
		}
		totalStake += input.Stakes[i]
	}
	if input.ValueAttached < totalStake {
		return nil, domain.ErrInsufficientStake
	}
	if err := s.requireIntakeOpen(ctx); err != nil {
		return nil, err
	}
	dataHashes := make([]domain.Hash, n)
	for i := 0; i < n; i++ {
		dataHashes[i] = domain.DisputeDataHash(input.InitiatorRefs[i], input.CounterpartyRefs[i], input.EvidenceRoots[i], input.Stakes[i])
		if err := s.requireNoOpenDuplicate(ctx, dataHashes[i]); err != nil {
			return nil, err
		}
		for j := 0; j < i; j++ {
			if dataHashes[j] == dataHashes[i] {
				return nil, domain.ErrConflict
			}
		}
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return nil, err
	}

	out := make([]domain.Dispute, 0, n)
	for i := 0; i < n; i++ {
		dispute, err := s.admitDispute(ctx, actor, input.InitiatorRefs[i], input.CounterpartyRefs[i], input.EvidenceRoots[i], input.Stakes[i], dataHashes[i])
		if err != nil {
			return nil, err
		}
		out = append(out, dispute)
	}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 201, out)
	return out, nil
}

// PauseIntake stops all submissions until resumed. Admin-only.
func (s *Service) PauseIntake(ctx context.Context, actor Actor) error {
	return s.setIntakePaused(ctx, actor, true)
}

func (s *Service) ResumeIntake(ctx context.Context, actor Actor) error {
	return s.setIntakePaused(ctx, actor, false)
}

func (s *Service) setIntakePaused(ctx context.Context, actor Actor, paused bool) error {
	if err := s.authorize(actor, CapAdminControl); err != nil {
		return err
	}
	if s.control == nil {
		return domain.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.control.SetIntakePaused(ctx, paused)
}

func (s *Service) validateDisputeEntry(initiatorRef, counterpartyRef string, stake int64) error {
	if strings.TrimSpace(initiatorRef) == "" || strings.TrimSpace(counterpartyRef) == "" {
		return domain.ErrInvalidInput
	}
	if stake <= 0 {
		return domain.ErrInvalidInput
	}
	return nil
}

// requireNoOpenDuplicate distinguishes "no duplicate" from a failing lookup:
// only ErrNotFound means the dataHash is free, any other repository error
// must surface so the dedup guarantee is not silently skipped.
func (s *Service) requireNoOpenDuplicate(ctx context.Context, dataHash domain.Hash) error {
	existing, err := s.disputes.GetOpenByDataHash(ctx, dataHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.DisputeID != 0 {
		return domain.ErrConflict
	}
	return nil
}

func (s *Service) requireIntakeOpen(ctx context.Context) error {
	if s.control == nil {
		return nil
	}
	paused, err := s.control.IntakePaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return domain.ErrIntakePaused
	}
	return nil
}

// admitDispute persists the dispute, queues it and records the stake.
// Callers hold the service mutex and have already validated the entry.
func (s *Service) admitDispute(ctx context.Context, actor Actor, initiatorRef, counterpartyRef string, evidenceRoot domain.Hash, stake int64, dataHash domain.Hash) (domain.Dispute, error) {
	now := s.nowFn()
	dispute := domain.Dispute{
		InitiatorRef:    initiatorRef,
		CounterpartyRef: counterpartyRef,
		EvidenceRoot:    evidenceRoot,
		DataHash:        dataHash,
		Stake:           stake,
		Status:          domain.DisputeStatusPending,
		Submitter:       actor.SubjectID,
		SubmittedAt:     now,
		UpdatedAt:       now,
	}
	id, err := s.disputes.Create(ctx, dispute)
	if err != nil {
		return domain.Dispute{}, err
	}
	dispute.DisputeID = id
	if err := s.pending.Enqueue(ctx, domain.PendingDispute{DisputeID: id, DataHash: dataHash, Stake: stake, EnqueuedAt: now}); err != nil {
		return domain.Dispute{}, err
	}
	s.appendLedgerEntry(ctx, actor.SubjectID, domain.LedgerEntryStakePosted, stake, "dispute", id)
	_ = s.enqueueDisputeSubmitted(ctx, dispute, actor.RequestID, now)
	return dispute, nil
}

// appendLedgerEntry records a bond/stake movement; ledger failures are
// logged by the repository, never fail the settlement operation.
func (s *Service) appendLedgerEntry(ctx context.Context, account, entryType string, amount int64, entityKind string, entityID uint64) {
	if s.ledger == nil {
		return
	}
	_ = s.ledger.Append(ctx, domain.LedgerEntry{
		EntryID:    uuid.NewString(),
		Account:    account,
		EntryType:  entryType,
		Amount:     amount,
		EntityKind: entityKind,
		EntityID:   entityID,
		OccurredAt: s.nowFn(),
	})
}

package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/ports"
)

// FlushOutbox drains pending outbox records in creation order. Domain and
// analytics records go to the event publisher; ops records are anchor-layer
// notifications and go through the anchor client. A failed delivery marks
// the record and stops the pass so ordering is preserved, until the record
// exhausts its attempt budget and is parked on the dead-letter channel.
func (s *Service) FlushOutbox(ctx context.Context) error {
	if s.outbox == nil {
		return nil
	}
	pending, err := s.outbox.FetchUnpublished(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil {
		return err
	}
	for _, rec := range pending {
		if err := s.deliverOutboxRecord(ctx, rec); err != nil {
			if rec.Attempts+1 >= s.cfg.OutboxMaxAttempts {
				if dlqErr := s.deadLetterOutboxRecord(ctx, rec, err); dlqErr != nil {
					_ = s.outbox.MarkFailed(ctx, rec.OutboxID, dlqErr.Error(), s.nowFn())
					return dlqErr
				}
				if err := s.outbox.MarkPublished(ctx, rec.OutboxID, s.nowFn()); err != nil {
					return err
				}
				continue
			}
			_ = s.outbox.MarkFailed(ctx, rec.OutboxID, err.Error(), s.nowFn())
			return err
		}
		if err := s.outbox.MarkPublished(ctx, rec.OutboxID, s.nowFn()); err != nil {
			return err
		}
	}
	return nil
}

// deadLetterOutboxRecord parks an undeliverable record on the dead-letter
// channel so the flush loop can move past it without losing the envelope.
func (s *Service) deadLetterOutboxRecord(ctx context.Context, rec ports.OutboxRecord, cause error) error {
	if s.events == nil {
		return nil
	}
	var env contracts.EventEnvelope
	_ = json.Unmarshal(rec.Payload, &env)
	now := s.nowFn()
	record := contracts.DLQRecord{
		OriginalEvent: env,
		ErrorSummary:  cause.Error(),
		RetryCount:    rec.Attempts + 1,
		FirstSeenAt:   rec.CreatedAt,
		LastErrorAt:   now,
		DLQTopic:      domain.EventDeadLetter,
		TraceID:       env.TraceID,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.events.Publish(ctx, domain.EventDeadLetter, payload, rec.PartitionKey)
}

func (s *Service) deliverOutboxRecord(ctx context.Context, rec ports.OutboxRecord) error {
	switch rec.EventClass {
	case domain.CanonicalEventClassDomain, domain.CanonicalEventClassAnalyticsOnly:
		if s.events == nil {
			return nil
		}
		return s.events.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey)
	case domain.CanonicalEventClassOps:
		return s.deliverAnchorNotification(ctx, rec)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedEventClass, rec.EventClass)
	}
}

func (s *Service) deliverAnchorNotification(ctx context.Context, rec ports.OutboxRecord) error {
	if s.anchor == nil {
		return nil
	}
	var env contracts.EventEnvelope
	if err := json.Unmarshal(rec.Payload, &env); err != nil {
		return domain.ErrInvalidEnvelope
	}
	switch rec.EventType {
	case domain.EventAnchorBatchReceived:
		var p contracts.AnchorBatchReceivedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return domain.ErrInvalidEnvelope
		}
		stateRoot, err := domain.HashFromHex(p.StateRoot)
		if err != nil {
			return err
		}
		disputeRoot, err := domain.HashFromHex(p.DisputeRoot)
		if err != nil {
			return err
		}
		return s.anchor.ReceiveBatch(ctx, p.BatchID, stateRoot, disputeRoot, p.Count)
	case domain.EventAnchorBatchFinalized:
		var p contracts.AnchorBatchFinalizedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return domain.ErrInvalidEnvelope
		}
		stateRoot, err := domain.HashFromHex(p.StateRoot)
		if err != nil {
			return err
		}
		return s.anchor.FinalizeBatch(ctx, p.BatchID, stateRoot)
	default:
		return domain.ErrUnsupportedEventType
	}
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, traceID string, data any, partitionKey string, now time.Time) error {
	if s.outbox == nil {
		return nil
	}
	if !domain.IsCanonicalEmittedEvent(eventType) {
		return domain.ErrUnsupportedEventType
	}
	b, err := json.Marshal(data)
	if err != nil {
		return domain.ErrInvalidInput
	}
	if strings.TrimSpace(traceID) == "" {
		traceID = uuid.NewString()
	}
	env := contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       now,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     partitionKey,
		SourceService:    s.cfg.ServiceName,
		TraceID:          traceID,
		SchemaVersion:    "v1",
		Data:             b,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return domain.ErrInvalidInput
	}
	return s.outbox.Enqueue(ctx, ports.OutboxRecord{
		OutboxID:     uuid.NewString(),
		EventType:    eventType,
		EventClass:   env.EventClass,
		Payload:      payload,
		PartitionKey: partitionKey,
		CreatedAt:    now,
	})
}

func (s *Service) enqueueDisputeSubmitted(ctx context.Context, dispute domain.Dispute, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventDisputeSubmitted, traceID, contracts.DisputeSubmittedPayload{
		DisputeID: dispute.DisputeID,
		DataHash:  dispute.DataHash.Hex(),
		Stake:     dispute.Stake,
		Submitter: dispute.Submitter,
		QueuedAt:  now.UTC().Format(time.RFC3339),
	}, formatUint(dispute.DisputeID), now)
}

func (s *Service) enqueueBatchCommitted(ctx context.Context, batch domain.Batch, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventBatchCommitted, traceID, contracts.BatchCommittedPayload{
		BatchID:        batch.BatchID,
		StateRoot:      batch.StateRoot.Hex(),
		DisputeRoot:    batch.DisputeRoot.Hex(),
		Count:          batch.Count,
		FirstDisputeID: batch.FirstDisputeID,
		LastDisputeID:  batch.LastDisputeID,
		Submitter:      batch.Submitter,
		SubmittedAt:    batch.SubmittedAt.UTC().Format(time.RFC3339),
	}, formatUint(batch.BatchID), now)
}

func (s *Service) enqueueBatchChallenged(ctx context.Context, batch domain.Batch, proof domain.FraudProof, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventBatchChallenged, traceID, contracts.BatchChallengedPayload{
		BatchID:     batch.BatchID,
		ProofID:     proof.ProofID,
		DisputeID:   proof.DisputeID,
		ClaimedRoot: proof.ClaimedRoot.Hex(),
		Challenger:  proof.Challenger,
		FiledAt:     proof.FiledAt.UTC().Format(time.RFC3339),
	}, formatUint(batch.BatchID), now)
}

func (s *Service) enqueueBatchRejected(ctx context.Context, batch domain.Batch, proof domain.FraudProof, slashed, payout int64, reverted int, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventBatchRejected, traceID, contracts.BatchRejectedPayload{
		BatchID:          batch.BatchID,
		ProofID:          proof.ProofID,
		Submitter:        batch.Submitter,
		SlashedBond:      slashed,
		ChallengerPayout: payout,
		RevertedCount:    reverted,
		RejectedAt:       now.UTC().Format(time.RFC3339),
	}, formatUint(batch.BatchID), now)
}

func (s *Service) enqueueBatchFinalized(ctx context.Context, batch domain.Batch, count int, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventBatchFinalized, traceID, contracts.BatchFinalizedPayload{
		BatchID:     batch.BatchID,
		StateRoot:   batch.StateRoot.Hex(),
		Count:       count,
		FinalizedAt: now.UTC().Format(time.RFC3339),
	}, formatUint(batch.BatchID), now)
}

func (s *Service) enqueueFraudProofResolved(ctx context.Context, proof domain.FraudProof, refund, fee int64, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventFraudProofResolved, traceID, contracts.FraudProofResolvedPayload{
		ProofID:    proof.ProofID,
		BatchID:    proof.BatchID,
		Confirmed:  proof.Confirmed,
		Refund:     refund,
		Fee:        fee,
		ResolvedAt: now.UTC().Format(time.RFC3339),
	}, formatUint(proof.ProofID), now)
}

func (s *Service) enqueueAnchorBatchReceived(ctx context.Context, batch domain.Batch, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventAnchorBatchReceived, traceID, contracts.AnchorBatchReceivedPayload{
		BatchID:     batch.BatchID,
		StateRoot:   batch.StateRoot.Hex(),
		DisputeRoot: batch.DisputeRoot.Hex(),
		Count:       batch.Count,
	}, formatUint(batch.BatchID), now)
}

func (s *Service) enqueueAnchorBatchFinalized(ctx context.Context, batch domain.Batch, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventAnchorBatchFinalized, traceID, contracts.AnchorBatchFinalizedPayload{
		BatchID:   batch.BatchID,
		StateRoot: batch.StateRoot.Hex(),
	}, formatUint(batch.BatchID), now)
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func validateEnvelope(event contracts.EventEnvelope) error {
	if strings.TrimSpace(event.EventID) == "" || strings.TrimSpace(event.EventType) == "" || event.OccurredAt.IsZero() {
		return domain.ErrInvalidEnvelope
	}
	if strings.TrimSpace(event.SourceService) == "" || strings.TrimSpace(event.TraceID) == "" || strings.TrimSpace(event.SchemaVersion) == "" {
		return domain.ErrInvalidEnvelope
	}
	if len(event.Data) == 0 {
		return domain.ErrInvalidEnvelope
	}
	return nil
}

// HandleCanonicalEvent routes inbound envelopes from the consumer loop.
// Intake requests feed SubmitDispute under the system role; the service's
// own emitted types can echo back on shared topics and are acknowledged
// without action.
func (s *Service) HandleCanonicalEvent(ctx context.Context, envelope contracts.EventEnvelope) error {
	if err := validateEnvelope(envelope); err != nil {
		return err
	}
	switch envelope.EventType {
	case domain.EventDisputeIntakeRequested:
		return s.submitFromIntakeEvent(ctx, envelope)
	default:
		if domain.IsCanonicalEmittedEvent(envelope.EventType) {
			return nil
		}
		return domain.ErrUnsupportedEventType
	}
}

// submitFromIntakeEvent admits an upstream intake request. The envelope
// EventID doubles as the idempotency key, so broker redelivery replays the
// stored response instead of queueing a second dispute.
func (s *Service) submitFromIntakeEvent(ctx context.Context, envelope contracts.EventEnvelope) error {
	var p contracts.DisputeIntakeRequestedPayload
	if err := json.Unmarshal(envelope.Data, &p); err != nil {
		return domain.ErrInvalidEnvelope
	}
	evidenceRoot := domain.ZeroHash
	if strings.TrimSpace(p.EvidenceRoot) != "" {
		root, err := domain.HashFromHex(p.EvidenceRoot)
		if err != nil {
			return domain.ErrInvalidEnvelope
		}
		evidenceRoot = root
	}
	actor := Actor{
		SubjectID:      envelope.SourceService,
		Role:           RoleSystem,
		RequestID:      envelope.TraceID,
		IdempotencyKey: envelope.EventID,
	}
	_, err := s.SubmitDispute(ctx, actor, SubmitDisputeInput{
		InitiatorRef:    p.InitiatorRef,
		CounterpartyRef: p.CounterpartyRef,
		EvidenceRoot:    evidenceRoot,
		Stake:           p.Stake,
		ValueAttached:   p.ValueAttached,
	})
	if errors.Is(err, domain.ErrConflict) {
		// the same dispute is already open; a redelivered request is done
		return nil
	}
	return err
}

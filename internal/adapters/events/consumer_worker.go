package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/ports"
)

type Message struct {
	Topic   string
	Payload []byte
}

type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
}

// ConsumerWorker feeds canonical envelopes from the intake topic into the
// service, dropping redeliveries through the dedup store. Envelopes the
// service rejects as unprocessable are parked on the dead-letter channel and
// marked processed so they never loop; transient failures are retried.
type ConsumerWorker struct {
	logger    *slog.Logger
	consumer  Consumer
	dedup     ports.EventDedupRepository
	service   *application.Service
	publisher ports.EventPublisher
	interval  time.Duration
	dedupTTL  time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, dedup ports.EventDedupRepository, service *application.Service, publisher ports.EventPublisher, interval, dedupTTL time.Duration) *ConsumerWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if dedupTTL <= 0 {
		dedupTTL = 7 * 24 * time.Hour
	}
	return &ConsumerWorker{
		logger: logger, consumer: consumer, dedup: dedup, service: service, publisher: publisher, interval: interval, dedupTTL: dedupTTL,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
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

func (w *ConsumerWorker) processOnce(ctx context.Context) error {
	msgs, err := w.consumer.Poll(ctx, 50)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, msg := range msgs {
		var envelope contracts.EventEnvelope
		if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
			w.logger.WarnContext(ctx, "undecodable event dropped",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "decode",
				"outcome", "failure",
				"topic", msg.Topic,
			)
			continue
		}
		if w.dedup != nil {
			dup, err := w.dedup.IsDuplicate(ctx, envelope.EventID, now)
			if err != nil {
				return err
			}
			if dup {
				continue
			}
		}
		if err := w.service.HandleCanonicalEvent(ctx, envelope); err != nil {
			if !isPermanentRejection(err) {
				return err
			}
			w.logger.WarnContext(ctx, "canonical event dead-lettered",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "handle_event",
				"outcome", "failure",
				"event_type", envelope.EventType,
				"error", err,
			)
			w.deadLetter(ctx, msg.Topic, envelope, err, now)
		}
		if w.dedup != nil {
			_ = w.dedup.MarkProcessed(ctx, envelope.EventID, envelope.EventType, now.Add(w.dedupTTL))
		}
	}
	return nil
}

// isPermanentRejection separates envelopes that can never succeed from
// transient store failures worth retrying on the next poll.
func isPermanentRejection(err error) bool {
	return errors.Is(err, domain.ErrInvalidEnvelope) ||
		errors.Is(err, domain.ErrUnsupportedEventType) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrInsufficientStake) ||
		errors.Is(err, domain.ErrIdempotencyConflict)
}

func (w *ConsumerWorker) deadLetter(ctx context.Context, sourceTopic string, envelope contracts.EventEnvelope, cause error, now time.Time) {
	if w.publisher == nil {
		return
	}
	record := contracts.DLQRecord{
		OriginalEvent: envelope,
		ErrorSummary:  cause.Error(),
		RetryCount:    1,
		FirstSeenAt:   now,
		LastErrorAt:   now,
		SourceTopic:   sourceTopic,
		DLQTopic:      domain.EventDeadLetter,
		TraceID:       envelope.TraceID,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := w.publisher.Publish(ctx, domain.EventDeadLetter, payload, envelope.PartitionKey); err != nil {
		w.logger.ErrorContext(ctx, "dead-letter publish failed",
			"module", "events.consumer_worker",
			"layer", "adapter",
			"operation", "dead_letter",
			"outcome", "failure",
			"event_type", envelope.EventType,
			"error", err,
		)
	}
}

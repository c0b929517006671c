package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
)

type workerClock struct {
	now time.Time
}

func (c *workerClock) Now() time.Time { return c.now }

func newWorkerService(t *testing.T, clock *workerClock) (*application.Service, *memory.Repositories) {
	t.Helper()
	repos := memory.NewRepositories(clock.now)
	svc := application.NewService(application.Dependencies{
		Disputes:    repos.Disputes,
		Pending:     repos.Pending,
		Batches:     repos.Batches,
		Proofs:      repos.Proofs,
		Sequencers:  repos.Sequencers,
		ChainState:  repos.ChainState,
		Ledger:      repos.Ledger,
		Control:     repos.Control,
		Idempotency: repos.Idempotency,
		Outbox:      repos.Outbox,
	}).WithClock(clock.Now)
	return svc, repos
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func submitThree(t *testing.T, svc *application.Service) {
	t.Helper()
	for i := 1; i <= 3; i++ {
		_, err := svc.SubmitDispute(context.Background(), application.Actor{
			SubjectID:      "user-1",
			Role:           application.RoleUser,
			IdempotencyKey: "worker-submit-" + string(rune('0'+i)),
		}, application.SubmitDisputeInput{
			InitiatorRef:    "claimant",
			CounterpartyRef: "respondent",
			Stake:           int64(100 * i),
			ValueAttached:   int64(100 * i),
		})
		if err != nil {
			t.Fatalf("submit dispute %d: %v", i, err)
		}
	}
}

func TestSettlementWorkerCommitsAndFinalizes(t *testing.T) {
	t.Parallel()

	clock := &workerClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	svc, _ := newWorkerService(t, clock)

	seqActor := application.Actor{SubjectID: "seq-1", Role: application.RoleSequencer}
	if _, err := svc.RegisterSequencer(context.Background(), seqActor, application.RegisterSequencerInput{Bond: 10_000}); err != nil {
		t.Fatalf("register sequencer: %v", err)
	}
	submitThree(t, svc)

	worker := NewSettlementWorker(discardLogger(), svc, "seq-1", time.Second)
	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	batch, err := svc.GetBatch(context.Background(), seqActor, 1)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if batch.Count != 3 || batch.Finalized {
		t.Fatalf("expected open batch of 3, got %+v", batch)
	}

	// still inside the challenge window: the batch stays tracked
	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	batch, _ = svc.GetBatch(context.Background(), seqActor, 1)
	if batch.Finalized {
		t.Fatalf("expected batch to wait out the window")
	}

	clock.now = clock.now.Add(7 * 24 * time.Hour)
	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("tick after window: %v", err)
	}
	batch, _ = svc.GetBatch(context.Background(), seqActor, 1)
	if !batch.Finalized {
		t.Fatalf("expected worker to finalize after the window, got %+v", batch)
	}
}

func TestSettlementWorkerToleratesUnbondedSequencer(t *testing.T) {
	t.Parallel()

	clock := &workerClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	svc, _ := newWorkerService(t, clock)
	submitThree(t, svc)

	worker := NewSettlementWorker(discardLogger(), svc, "seq-ghost", time.Second)
	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("expected unbonded sequencer to be tolerated, got %v", err)
	}
}

type stubConsumer struct {
	msgs []Message
}

func (c *stubConsumer) Poll(_ context.Context, _ int) ([]Message, error) {
	out := c.msgs
	c.msgs = nil
	return out, nil
}

func TestConsumerWorkerDeduplicates(t *testing.T) {
	t.Parallel()

	clock := &workerClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	svc, repos := newWorkerService(t, clock)

	envelope := contracts.EventEnvelope{
		EventID:       "evt-1",
		EventType:     domain.EventBatchCommitted,
		EventClass:    domain.CanonicalEventClassDomain,
		OccurredAt:    clock.now,
		PartitionKey:  "1",
		SourceService: "M46-Dispute-Settlement-Service",
		TraceID:       "trace-1",
		SchemaVersion: "v1",
		Data:          []byte(`{"batch_id":1}`),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	consumer := &stubConsumer{msgs: []Message{
		{Topic: "settlement.batches", Payload: payload},
		{Topic: "settlement.batches", Payload: payload},
		{Topic: "settlement.batches", Payload: []byte("not json")},
	}}
	worker := NewConsumerWorker(discardLogger(), consumer, repos.EventDedup, svc, nil, time.Second, time.Hour)
	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	dup, err := repos.EventDedup.IsDuplicate(context.Background(), "evt-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("dedup check: %v", err)
	}
	if !dup {
		t.Fatalf("expected event marked processed")
	}
}

type recordingPublisher struct {
	topics   []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload []byte, _ string) error {
	p.topics = append(p.topics, eventType)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestConsumerWorkerDeadLettersUnprocessableEvent(t *testing.T) {
	t.Parallel()

	clock := &workerClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	svc, repos := newWorkerService(t, clock)

	envelope := contracts.EventEnvelope{
		EventID:       "evt-bad-1",
		EventType:     "unknown.event",
		EventClass:    domain.CanonicalEventClassDomain,
		OccurredAt:    clock.now,
		PartitionKey:  "1",
		SourceService: "some-upstream",
		TraceID:       "trace-dlq",
		SchemaVersion: "v1",
		Data:          []byte(`{}`),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	publisher := &recordingPublisher{}
	consumer := &stubConsumer{msgs: []Message{{Topic: "dispute.intake", Payload: payload}}}
	worker := NewConsumerWorker(discardLogger(), consumer, repos.EventDedup, svc, publisher, time.Second, time.Hour)
	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(publisher.topics) != 1 || publisher.topics[0] != domain.EventDeadLetter {
		t.Fatalf("expected one dead-letter publish, got %v", publisher.topics)
	}
	var record contracts.DLQRecord
	if err := json.Unmarshal(publisher.payloads[0], &record); err != nil {
		t.Fatalf("decode dead-letter record: %v", err)
	}
	if record.SourceTopic != "dispute.intake" || record.OriginalEvent.EventID != "evt-bad-1" {
		t.Fatalf("unexpected dead-letter record %+v", record)
	}
	if record.ErrorSummary == "" {
		t.Fatalf("expected rejection reason in dead-letter record")
	}

	// parked, not retried: the event is marked processed
	dup, err := repos.EventDedup.IsDuplicate(context.Background(), "evt-bad-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("dedup check: %v", err)
	}
	if !dup {
		t.Fatalf("expected dead-lettered event marked processed")
	}
}

package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
)

// DisputeRepository is the arena-style dispute table. Create assigns and
// returns the next monotonic ID.
type DisputeRepository interface {
	Create(ctx context.Context, row domain.Dispute) (uint64, error)
	GetByID(ctx context.Context, disputeID uint64) (domain.Dispute, error)
	GetOpenByDataHash(ctx context.Context, dataHash domain.Hash) (domain.Dispute, error)
	Update(ctx context.Context, row domain.Dispute) error
	ListByBatchID(ctx context.Context, batchID uint64) ([]domain.Dispute, error)
}

// PendingQueueRepository is the strict-FIFO intake queue. Entries are
// addressed by a monotonic position and leave only through batch inclusion.
type PendingQueueRepository interface {
	Enqueue(ctx context.Context, row domain.PendingDispute) error
	OldestN(ctx context.Context, n int) ([]domain.PendingDispute, error)
	Remove(ctx context.Context, positions []uint64) error
	Size(ctx context.Context) (int, error)
}

type BatchRepository interface {
	Create(ctx context.Context, row domain.Batch) (uint64, error)
	GetByID(ctx context.Context, batchID uint64) (domain.Batch, error)
	Update(ctx context.Context, row domain.Batch) error
	HasUnresolvedBySubmitter(ctx context.Context, sequencerID string) (bool, error)
}

type FraudProofRepository interface {
	Create(ctx context.Context, row domain.FraudProof) (uint64, error)
	GetByID(ctx context.Context, proofID uint64) (domain.FraudProof, error)
	Update(ctx context.Context, row domain.FraudProof) error
	ListByBatchID(ctx context.Context, batchID uint64) ([]domain.FraudProof, error)
}

type SequencerRepository interface {
	Create(ctx context.Context, row domain.Sequencer) error
	GetByID(ctx context.Context, sequencerID string) (domain.Sequencer, error)
	Update(ctx context.Context, row domain.Sequencer) error
	ListActive(ctx context.Context) ([]domain.Sequencer, error)
}

// ChainStateRepository holds the single hash-chain head row.
type ChainStateRepository interface {
	Get(ctx context.Context) (domain.ChainState, error)
	Update(ctx context.Context, state domain.ChainState) error
}

type LedgerEntryRepository interface {
	Append(ctx context.Context, row domain.LedgerEntry) error
	ListByAccount(ctx context.Context, account string) ([]domain.LedgerEntry, error)
}

// ControlRepository exposes operational switches, currently only the
// administrative intake pause.
type ControlRepository interface {
	IntakePaused(ctx context.Context) (bool, error)
	SetIntakePaused(ctx context.Context, paused bool) error
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}

// Transactor runs fn atomically against the backing store. MarkFailed-style
// best-effort writes stay outside; every multi-table settlement mutation goes
// through it so a mid-operation failure rolls back whole.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type OutboxRecord struct {
	OutboxID     string
	EventType    string
	EventClass   string
	Payload      []byte
	PartitionKey string
	CreatedAt    time.Time
	PublishedAt  *time.Time
	Attempts     int
	LastError    string
}

// OutboxRepository stores canonical envelopes until the flush worker delivers
// them. MarkFailed counts one delivery attempt; the flush loop dead-letters a
// record once its attempts reach the configured cap.
type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID string, reason string, at time.Time) error
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}

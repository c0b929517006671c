// Package memory provides map-backed repositories for local runtimes and
// tests. Semantics mirror the postgres adapter, including monotonic ID
// assignment and FIFO queue order.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/ports"
)

type Repositories struct {
	Disputes    *DisputeRepository
	Pending     *PendingQueueRepository
	Batches     *BatchRepository
	Proofs      *FraudProofRepository
	Sequencers  *SequencerRepository
	ChainState  *ChainStateRepository
	Ledger      *LedgerEntryRepository
	Control     *ControlRepository
	Idempotency *IdempotencyRepository
	Outbox      *OutboxRepository
	EventDedup  *EventDedupRepository
}

// NewRepositories builds the full repository set with the chain head seeded
// at genesis: batch 0, zero root, LastBatchAt = genesis. Seeding LastBatchAt
// keeps the interval trigger quiet until real disputes arrive.
func NewRepositories(genesis time.Time) *Repositories {
	return &Repositories{
		Disputes:   &DisputeRepository{rows: make(map[uint64]domain.Dispute)},
		Pending:    &PendingQueueRepository{},
		Batches:    &BatchRepository{rows: make(map[uint64]domain.Batch)},
		Proofs:     &FraudProofRepository{rows: make(map[uint64]domain.FraudProof)},
		Sequencers: &SequencerRepository{rows: make(map[string]domain.Sequencer)},
		ChainState: &ChainStateRepository{state: domain.ChainState{
			LastBatchID:   0,
			LastStateRoot: domain.ZeroHash,
			LastBatchAt:   genesis,
		}},
		Ledger:      &LedgerEntryRepository{},
		Control:     &ControlRepository{},
		Idempotency: &IdempotencyRepository{rows: make(map[string]ports.IdempotencyRecord)},
		Outbox:      &OutboxRepository{rows: make(map[string]ports.OutboxRecord)},
		EventDedup:  &EventDedupRepository{rows: make(map[string]dedupRecord)},
	}
}

type DisputeRepository struct {
	mu     sync.RWMutex
	rows   map[uint64]domain.Dispute
	nextID uint64
}

func (r *DisputeRepository) Create(_ context.Context, row domain.Dispute) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	row.DisputeID = r.nextID
	r.rows[row.DisputeID] = row
	return row.DisputeID, nil
}

func (r *DisputeRepository) GetByID(_ context.Context, disputeID uint64) (domain.Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[disputeID]
	if !ok {
		return domain.Dispute{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *DisputeRepository) GetOpenByDataHash(_ context.Context, dataHash domain.Hash) (domain.Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if row.DataHash == dataHash && !domain.IsTerminalDisputeStatus(row.Status) {
			return row, nil
		}
	}
	return domain.Dispute{}, domain.ErrNotFound
}

func (r *DisputeRepository) Update(_ context.Context, row domain.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.DisputeID]; !ok {
		return domain.ErrNotFound
	}
	r.rows[row.DisputeID] = row
	return nil
}

func (r *DisputeRepository) ListByBatchID(_ context.Context, batchID uint64) ([]domain.Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Dispute, 0, 8)
	for _, row := range r.rows {
		if row.BatchID != nil && *row.BatchID == batchID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisputeID < out[j].DisputeID })
	return out, nil
}

type PendingQueueRepository struct {
	mu      sync.RWMutex
	entries []domain.PendingDispute
	nextPos uint64
}

func (r *PendingQueueRepository) Enqueue(_ context.Context, row domain.PendingDispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextPos++
	row.Position = r.nextPos
	r.entries = append(r.entries, row)
	return nil
}

func (r *PendingQueueRepository) OldestN(_ context.Context, n int) ([]domain.PendingDispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 {
		return nil, nil
	}
	if n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]domain.PendingDispute, n)
	copy(out, r.entries[:n])
	return out, nil
}

func (r *PendingQueueRepository) Remove(_ context.Context, positions []uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := make(map[uint64]bool, len(positions))
	for _, p := range positions {
		drop[p] = true
	}
	kept := r.entries[:0]
	for _, e := range r.entries {
		if !drop[e.Position] {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

func (r *PendingQueueRepository) Size(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

type BatchRepository struct {
	mu     sync.RWMutex
	rows   map[uint64]domain.Batch
	nextID uint64
}

func (r *BatchRepository) Create(_ context.Context, row domain.Batch) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	row.BatchID = r.nextID
	r.rows[row.BatchID] = row
	return row.BatchID, nil
}

func (r *BatchRepository) GetByID(_ context.Context, batchID uint64) (domain.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[batchID]
	if !ok {
		return domain.Batch{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *BatchRepository) Update(_ context.Context, row domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.BatchID]; !ok {
		return domain.ErrNotFound
	}
	r.rows[row.BatchID] = row
	return nil
}

func (r *BatchRepository) HasUnresolvedBySubmitter(_ context.Context, sequencerID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if row.Submitter == sequencerID && !row.Finalized && !row.Rejected {
			return true, nil
		}
	}
	return false, nil
}

type FraudProofRepository struct {
	mu     sync.RWMutex
	rows   map[uint64]domain.FraudProof
	nextID uint64
}

func (r *FraudProofRepository) Create(_ context.Context, row domain.FraudProof) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	row.ProofID = r.nextID
	r.rows[row.ProofID] = row
	return row.ProofID, nil
}

func (r *FraudProofRepository) GetByID(_ context.Context, proofID uint64) (domain.FraudProof, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[proofID]
	if !ok {
		return domain.FraudProof{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *FraudProofRepository) Update(_ context.Context, row domain.FraudProof) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.ProofID]; !ok {
		return domain.ErrNotFound
	}
	r.rows[row.ProofID] = row
	return nil
}

func (r *FraudProofRepository) ListByBatchID(_ context.Context, batchID uint64) ([]domain.FraudProof, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.FraudProof, 0, 4)
	for _, row := range r.rows {
		if row.BatchID == batchID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProofID < out[j].ProofID })
	return out, nil
}

type SequencerRepository struct {
	mu   sync.RWMutex
	rows map[string]domain.Sequencer
}

func (r *SequencerRepository) Create(_ context.Context, row domain.Sequencer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[row.SequencerID]; exists {
		return domain.ErrConflict
	}
	r.rows[row.SequencerID] = row
	return nil
}

func (r *SequencerRepository) GetByID(_ context.Context, sequencerID string) (domain.Sequencer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[sequencerID]
	if !ok {
		return domain.Sequencer{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *SequencerRepository) Update(_ context.Context, row domain.Sequencer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.SequencerID]; !ok {
		return domain.ErrNotFound
	}
	r.rows[row.SequencerID] = row
	return nil
}

func (r *SequencerRepository) ListActive(_ context.Context) ([]domain.Sequencer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Sequencer, 0, len(r.rows))
	for _, row := range r.rows {
		if row.Active {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].SequencerID < out[j].SequencerID
		}
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out, nil
}

type ChainStateRepository struct {
	mu    sync.RWMutex
	state domain.ChainState
}

func (r *ChainStateRepository) Get(_ context.Context) (domain.ChainState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state, nil
}

func (r *ChainStateRepository) Update(_ context.Context, state domain.ChainState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	return nil
}

type LedgerEntryRepository struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

func (r *LedgerEntryRepository) Append(_ context.Context, row domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, row)
	return nil
}

func (r *LedgerEntryRepository) ListByAccount(_ context.Context, account string) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.LedgerEntry, 0, 8)
	for _, row := range r.entries {
		if row.Account == account {
			out = append(out, row)
		}
	}
	return out, nil
}

type ControlRepository struct {
	mu     sync.RWMutex
	paused bool
}

func (r *ControlRepository) IntakePaused(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paused, nil
}

func (r *ControlRepository) SetIntakePaused(_ context.Context, paused bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = paused
	return nil
}

type IdempotencyRepository struct {
	mu   sync.RWMutex
	rows map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.rows[key]
	if !ok || now.After(rec.ExpiresAt) {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rows[key]; ok && existing.RequestHash != requestHash {
		return domain.ErrIdempotencyConflict
	}
	r.rows[key] = ports.IdempotencyRecord{Key: key, RequestHash: requestHash, ExpiresAt: expiresAt}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.ResponseCode = responseCode
	rec.ResponseBody = responseBody
	r.rows[key] = rec
	return nil
}

type OutboxRepository struct {
	mu    sync.RWMutex
	rows  map[string]ports.OutboxRecord
	order []string
}

func (r *OutboxRepository) Enqueue(_ context.Context, record ports.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[record.OutboxID]; !exists {
		r.order = append(r.order, record.OutboxID)
	}
	r.rows[record.OutboxID] = record
	return nil
}

func (r *OutboxRepository) FetchUnpublished(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.order {
		rec := r.rows[id]
		if rec.PublishedAt != nil {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, outboxID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[outboxID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.PublishedAt = &at
	r.rows[outboxID] = rec
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, outboxID string, reason string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[outboxID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Attempts++
	rec.LastError = reason
	r.rows[outboxID] = rec
	return nil
}

// Transactor satisfies the unit-of-work port without transactional scope:
// the map stores mutate under the service mutex, so fn runs directly.
type Transactor struct{}

func NewTransactor() *Transactor { return &Transactor{} }

func (Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type dedupRecord struct {
	eventType string
	expiresAt time.Time
}

type EventDedupRepository struct {
	mu   sync.RWMutex
	rows map[string]dedupRecord
}

func (r *EventDedupRepository) IsDuplicate(_ context.Context, eventID string, now time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.rows[eventID]
	if !ok {
		return false, nil
	}
	return now.Before(rec.expiresAt), nil
}

func (r *EventDedupRepository) MarkProcessed(_ context.Context, eventID, eventType string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[eventID] = dedupRecord{eventType: eventType, expiresAt: expiresAt}
	return nil
}

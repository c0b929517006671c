package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repositories struct {
	Disputes    ports.DisputeRepository
	Pending     ports.PendingQueueRepository
	Batches     ports.BatchRepository
	Proofs      ports.FraudProofRepository
	Sequencers  ports.SequencerRepository
	ChainState  ports.ChainStateRepository
	Ledger      ports.LedgerEntryRepository
	Control     ports.ControlRepository
	Idempotency ports.IdempotencyRepository
	Outbox      ports.OutboxRepository
	EventDedup  ports.EventDedupRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Disputes:    &disputeRepository{db: db},
		Pending:     &pendingQueueRepository{db: db},
		Batches:     &batchRepository{db: db},
		Proofs:      &fraudProofRepository{db: db},
		Sequencers:  &sequencerRepository{db: db},
		ChainState:  &chainStateRepository{db: db},
		Ledger:      &ledgerEntryRepository{db: db},
		Control:     &controlRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
		Outbox:      &outboxRepository{db: db},
		EventDedup:  &eventDedupRepository{db: db},
	}
}

type disputeRepository struct {
	db *gorm.DB
}

func (r *disputeRepository) Create(ctx context.Context, row domain.Dispute) (uint64, error) {
	rec := toDisputeModel(row)
	rec.DisputeID = 0
	if err := session(ctx, r.db).Create(&rec).Error; err != nil {
		return 0, err
	}
	return rec.DisputeID, nil
}

func (r *disputeRepository) GetByID(ctx context.Context, disputeID uint64) (domain.Dispute, error) {
	var rec disputeModel
	if err := session(ctx, r.db).Where("dispute_id = ?", disputeID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Dispute{}, domain.ErrNotFound
		}
		return domain.Dispute{}, err
	}
	return toDomainDispute(rec)
}

func (r *disputeRepository) GetOpenByDataHash(ctx context.Context, dataHash domain.Hash) (domain.Dispute, error) {
	var rec disputeModel
	if err := session(ctx, r.db).
		Where("data_hash = ?", dataHash.Hex()).
		Where("status IN ?", []string{domain.DisputeStatusPending, domain.DisputeStatusActive}).
		Order("dispute_id ASC").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Dispute{}, domain.ErrNotFound
		}
		return domain.Dispute{}, err
	}
	return toDomainDispute(rec)
}

func (r *disputeRepository) Update(ctx context.Context, row domain.Dispute) error {
	rec := toDisputeModel(row)
	res := session(ctx, r.db).
		Model(&disputeModel{}).
		Where("dispute_id = ?", row.DisputeID).
		Updates(map[string]any{
			"status":     rec.Status,
			"batch_id":   rec.BatchID,
			"updated_at": rec.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *disputeRepository) ListByBatchID(ctx context.Context, batchID uint64) ([]domain.Dispute, error) {
	var rows []disputeModel
	if err := session(ctx, r.db).
		Where("batch_id = ?", batchID).
		Order("dispute_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Dispute, 0, len(rows))
	for _, rec := range rows {
		d, err := toDomainDispute(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

type pendingQueueRepository struct {
	db *gorm.DB
}

func (r *pendingQueueRepository) Enqueue(ctx context.Context, row domain.PendingDispute) error {
	rec := pendingQueueModel{
		DisputeID:  row.DisputeID,
		DataHash:   row.DataHash.Hex(),
		Stake:      row.Stake,
		EnqueuedAt: row.EnqueuedAt,
	}
	return session(ctx, r.db).Create(&rec).Error
}

func (r *pendingQueueRepository) OldestN(ctx context.Context, n int) ([]domain.PendingDispute, error) {
	if n <= 0 {
		return nil, nil
	}
	var rows []pendingQueueModel
	if err := session(ctx, r.db).
		Order("position ASC").
		Limit(n).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.PendingDispute, 0, len(rows))
	for _, rec := range rows {
		dataHash, err := domain.HashFromHex(strings.TrimSpace(rec.DataHash))
		if err != nil {
			return nil, err
		}
		out = append(out, domain.PendingDispute{
			Position:   rec.Position,
			DisputeID:  rec.DisputeID,
			DataHash:   dataHash,
			Stake:      rec.Stake,
			EnqueuedAt: rec.EnqueuedAt,
		})
	}
	return out, nil
}

func (r *pendingQueueRepository) Remove(ctx context.Context, positions []uint64) error {
	if len(positions) == 0 {
		return nil
	}
	return session(ctx, r.db).
		Where("position IN ?", positions).
		Delete(&pendingQueueModel{}).Error
}

func (r *pendingQueueRepository) Size(ctx context.Context) (int, error) {
	var count int64
	if err := session(ctx, r.db).Model(&pendingQueueModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

type batchRepository struct {
	db *gorm.DB
}

func (r *batchRepository) Create(ctx context.Context, row domain.Batch) (uint64, error) {
	rec := toBatchModel(row)
	rec.BatchID = 0
	if err := session(ctx, r.db).Create(&rec).Error; err != nil {
		return 0, err
	}
	return rec.BatchID, nil
}

func (r *batchRepository) GetByID(ctx context.Context, batchID uint64) (domain.Batch, error) {
	var rec batchModel
	if err := session(ctx, r.db).Where("batch_id = ?", batchID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Batch{}, domain.ErrNotFound
		}
		return domain.Batch{}, err
	}
	return toDomainBatch(rec)
}

func (r *batchRepository) Update(ctx context.Context, row domain.Batch) error {
	res := session(ctx, r.db).
		Model(&batchModel{}).
		Where("batch_id = ?", row.BatchID).
		Updates(map[string]any{
			"finalized_at": row.FinalizedAt,
			"challenged":   row.Challenged,
			"finalized":    row.Finalized,
			"rejected":     row.Rejected,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *batchRepository) HasUnresolvedBySubmitter(ctx context.Context, sequencerID string) (bool, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&batchModel{}).
		Where("submitter = ?", sequencerID).
		Where("NOT finalized").
		Where("NOT rejected").
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type fraudProofRepository struct {
	db *gorm.DB
}

func (r *fraudProofRepository) Create(ctx context.Context, row domain.FraudProof) (uint64, error) {
	rec, err := toFraudProofModel(row)
	if err != nil {
		return 0, err
	}
	rec.ProofID = 0
	if err := session(ctx, r.db).Create(&rec).Error; err != nil {
		return 0, err
	}
	return rec.ProofID, nil
}

func (r *fraudProofRepository) GetByID(ctx context.Context, proofID uint64) (domain.FraudProof, error) {
	var rec fraudProofModel
	if err := session(ctx, r.db).Where("proof_id = ?", proofID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.FraudProof{}, domain.ErrNotFound
		}
		return domain.FraudProof{}, err
	}
	return toDomainFraudProof(rec)
}

func (r *fraudProofRepository) Update(ctx context.Context, row domain.FraudProof) error {
	res := session(ctx, r.db).
		Model(&fraudProofModel{}).
		Where("proof_id = ?", row.ProofID).
		Updates(map[string]any{
			"resolved":    row.Resolved,
			"confirmed":   row.Confirmed,
			"resolved_at": row.ResolvedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *fraudProofRepository) ListByBatchID(ctx context.Context, batchID uint64) ([]domain.FraudProof, error) {
	var rows []fraudProofModel
	if err := session(ctx, r.db).
		Where("batch_id = ?", batchID).
		Order("proof_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.FraudProof, 0, len(rows))
	for _, rec := range rows {
		p, err := toDomainFraudProof(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type sequencerRepository struct {
	db *gorm.DB
}

func (r *sequencerRepository) Create(ctx context.Context, row domain.Sequencer) error {
	rec := toSequencerModel(row)
	if err := session(ctx, r.db).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *sequencerRepository) GetByID(ctx context.Context, sequencerID string) (domain.Sequencer, error) {
	var rec sequencerModel
	if err := session(ctx, r.db).Where("sequencer_id = ?", sequencerID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Sequencer{}, domain.ErrNotFound
		}
		return domain.Sequencer{}, err
	}
	return toDomainSequencer(rec), nil
}

func (r *sequencerRepository) Update(ctx context.Context, row domain.Sequencer) error {
	rec := toSequencerModel(row)
	res := session(ctx, r.db).
		Model(&sequencerModel{}).
		Where("sequencer_id = ?", row.SequencerID).
		Updates(map[string]any{
			"bond_amount":   rec.BondAmount,
			"active":        rec.Active,
			"is_primary":    rec.IsPrimary,
			"registered_at": rec.RegisteredAt,
			"exited_at":     rec.ExitedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *sequencerRepository) ListActive(ctx context.Context) ([]domain.Sequencer, error) {
	var rows []sequencerModel
	if err := session(ctx, r.db).
		Where("active").
		Order("registered_at ASC, sequencer_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Sequencer, 0, len(rows))
	for _, rec := range rows {
		out = append(out, toDomainSequencer(rec))
	}
	return out, nil
}

type chainStateRepository struct {
	db *gorm.DB
}

func (r *chainStateRepository) Get(ctx context.Context) (domain.ChainState, error) {
	var rec chainStateModel
	if err := session(ctx, r.db).Where("singleton_id = 1").Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ChainState{}, domain.ErrNotFound
		}
		return domain.ChainState{}, err
	}
	root, err := domain.HashFromHex(strings.TrimSpace(rec.LastStateRoot))
	if err != nil {
		return domain.ChainState{}, err
	}
	return domain.ChainState{
		LastBatchID:   rec.LastBatchID,
		LastStateRoot: root,
		LastBatchAt:   rec.LastBatchAt,
	}, nil
}

func (r *chainStateRepository) Update(ctx context.Context, state domain.ChainState) error {
	return session(ctx, r.db).
		Model(&chainStateModel{}).
		Where("singleton_id = 1").
		Updates(map[string]any{
			"last_batch_id":   state.LastBatchID,
			"last_state_root": state.LastStateRoot.Hex(),
			"last_batch_at":   state.LastBatchAt,
		}).Error
}

type ledgerEntryRepository struct {
	db *gorm.DB
}

func (r *ledgerEntryRepository) Append(ctx context.Context, row domain.LedgerEntry) error {
	entryID, err := uuid.Parse(row.EntryID)
	if err != nil {
		entryID = uuid.New()
	}
	rec := ledgerEntryModel{
		EntryID:    entryID,
		Account:    row.Account,
		EntryType:  row.EntryType,
		Amount:     row.Amount,
		EntityKind: row.EntityKind,
		EntityID:   row.EntityID,
		OccurredAt: row.OccurredAt,
	}
	return session(ctx, r.db).Create(&rec).Error
}

func (r *ledgerEntryRepository) ListByAccount(ctx context.Context, account string) ([]domain.LedgerEntry, error) {
	var rows []ledgerEntryModel
	if err := session(ctx, r.db).
		Where("account = ?", account).
		Order("occurred_at ASC, entry_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.LedgerEntry, 0, len(rows))
	for _, rec := range rows {
		out = append(out, domain.LedgerEntry{
			EntryID:    rec.EntryID.String(),
			Account:    rec.Account,
			EntryType:  rec.EntryType,
			Amount:     rec.Amount,
			EntityKind: rec.EntityKind,
			EntityID:   rec.EntityID,
			OccurredAt: rec.OccurredAt,
		})
	}
	return out, nil
}

type controlRepository struct {
	db *gorm.DB
}

func (r *controlRepository) IntakePaused(ctx context.Context) (bool, error) {
	var rec controlModel
	if err := session(ctx, r.db).Where("singleton_id = 1").Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return rec.IntakePaused, nil
}

func (r *controlRepository) SetIntakePaused(ctx context.Context, paused bool) error {
	rec := controlModel{SingletonID: 1, IntakePaused: paused}
	return session(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "singleton_id"}},
		DoUpdates: clause.Assignments(map[string]any{"intake_paused": paused}),
	}).Create(&rec).Error
}

type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	var rec idempotencyModel
	if err := session(ctx, r.db).
		Where("idempotency_key = ?", key).
		Where("expires_at > ?", now).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := ports.IdempotencyRecord{
		Key:          rec.IdempotencyKey,
		RequestHash:  rec.RequestHash,
		ResponseCode: rec.ResponseCode,
		ExpiresAt:    rec.ExpiresAt,
	}
	if rec.ResponseBody != nil {
		out.ResponseBody = []byte(*rec.ResponseBody)
	}
	return &out, nil
}

func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	rec := idempotencyModel{
		IdempotencyKey: key,
		RequestHash:    requestHash,
		ExpiresAt:      expiresAt,
	}
	err := session(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	if err != nil {
		return err
	}
	var existing idempotencyModel
	if err := session(ctx, r.db).Where("idempotency_key = ?", key).Take(&existing).Error; err != nil {
		return err
	}
	if existing.RequestHash != requestHash {
		return domain.ErrIdempotencyConflict
	}
	return nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	body := string(responseBody)
	res := session(ctx, r.db).
		Model(&idempotencyModel{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{
			"response_code": responseCode,
			"response_body": nullableString(body),
			"updated_at":    at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	outboxID, err := uuid.Parse(record.OutboxID)
	if err != nil {
		outboxID = uuid.New()
	}
	rec := outboxModel{
		OutboxID:     outboxID,
		EventType:    record.EventType,
		EventClass:   record.EventClass,
		Payload:      string(record.Payload),
		PartitionKey: record.PartitionKey,
		CreatedAt:    record.CreatedAt,
	}
	return session(ctx, r.db).Create(&rec).Error
}

func (r *outboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []outboxModel
	if err := session(ctx, r.db).
		Where("published_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(rows))
	for _, rec := range rows {
		item := ports.OutboxRecord{
			OutboxID:     rec.OutboxID.String(),
			EventType:    rec.EventType,
			EventClass:   rec.EventClass,
			Payload:      []byte(rec.Payload),
			PartitionKey: rec.PartitionKey,
			CreatedAt:    rec.CreatedAt,
			PublishedAt:  rec.PublishedAt,
			Attempts:     rec.Attempts,
		}
		if rec.LastError != nil {
			item.LastError = *rec.LastError
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, outboxID string, at time.Time) error {
	return session(ctx, r.db).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"published_at": at,
			"last_error":   nil,
		}).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, outboxID string, reason string, at time.Time) error {
	_ = at
	return session(ctx, r.db).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
}

type eventDedupRepository struct {
	db *gorm.DB
}

func (r *eventDedupRepository) IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&eventDedupModel{}).
		Where("event_id = ?", eventID).
		Where("expires_at > ?", now).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *eventDedupRepository) MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error {
	rec := eventDedupModel{EventID: eventID, EventType: eventType, ExpiresAt: expiresAt}
	return session(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.Assignments(map[string]any{"expires_at": expiresAt}),
	}).Create(&rec).Error
}

func toDisputeModel(row domain.Dispute) disputeModel {
	return disputeModel{
		DisputeID:       row.DisputeID,
		InitiatorRef:    row.InitiatorRef,
		CounterpartyRef: row.CounterpartyRef,
		EvidenceRoot:    row.EvidenceRoot.Hex(),
		DataHash:        row.DataHash.Hex(),
		Stake:           row.Stake,
		Status:          row.Status,
		BatchID:         row.BatchID,
		Submitter:       row.Submitter,
		SubmittedAt:     row.SubmittedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func toDomainDispute(rec disputeModel) (domain.Dispute, error) {
	evidenceRoot, err := domain.HashFromHex(strings.TrimSpace(rec.EvidenceRoot))
	if err != nil {
		return domain.Dispute{}, err
	}
	dataHash, err := domain.HashFromHex(strings.TrimSpace(rec.DataHash))
	if err != nil {
		return domain.Dispute{}, err
	}
	return domain.Dispute{
		DisputeID:       rec.DisputeID,
		InitiatorRef:    rec.InitiatorRef,
		CounterpartyRef: rec.CounterpartyRef,
		EvidenceRoot:    evidenceRoot,
		DataHash:        dataHash,
		Stake:           rec.Stake,
		Status:          rec.Status,
		BatchID:         rec.BatchID,
		Submitter:       rec.Submitter,
		SubmittedAt:     rec.SubmittedAt,
		UpdatedAt:       rec.UpdatedAt,
	}, nil
}

func toBatchModel(row domain.Batch) batchModel {
	return batchModel{
		BatchID:        row.BatchID,
		StateRoot:      row.StateRoot.Hex(),
		DisputeRoot:    row.DisputeRoot.Hex(),
		DisputeCount:   row.Count,
		FirstDisputeID: row.FirstDisputeID,
		LastDisputeID:  row.LastDisputeID,
		Submitter:      row.Submitter,
		SubmittedAt:    row.SubmittedAt,
		FinalizedAt:    row.FinalizedAt,
		Challenged:     row.Challenged,
		Finalized:      row.Finalized,
		Rejected:       row.Rejected,
	}
}

func toDomainBatch(rec batchModel) (domain.Batch, error) {
	stateRoot, err := domain.HashFromHex(strings.TrimSpace(rec.StateRoot))
	if err != nil {
		return domain.Batch{}, err
	}
	disputeRoot, err := domain.HashFromHex(strings.TrimSpace(rec.DisputeRoot))
	if err != nil {
		return domain.Batch{}, err
	}
	return domain.Batch{
		BatchID:        rec.BatchID,
		StateRoot:      stateRoot,
		DisputeRoot:    disputeRoot,
		Count:          rec.DisputeCount,
		FirstDisputeID: rec.FirstDisputeID,
		LastDisputeID:  rec.LastDisputeID,
		Submitter:      rec.Submitter,
		SubmittedAt:    rec.SubmittedAt,
		FinalizedAt:    rec.FinalizedAt,
		Challenged:     rec.Challenged,
		Finalized:      rec.Finalized,
		Rejected:       rec.Rejected,
	}, nil
}

func toFraudProofModel(row domain.FraudProof) (fraudProofModel, error) {
	path := make([]string, 0, len(row.ProofPath))
	for _, h := range row.ProofPath {
		path = append(path, h.Hex())
	}
	encoded, err := json.Marshal(path)
	if err != nil {
		return fraudProofModel{}, err
	}
	return fraudProofModel{
		ProofID:     row.ProofID,
		BatchID:     row.BatchID,
		DisputeID:   row.DisputeID,
		ClaimedRoot: row.ClaimedRoot.Hex(),
		ProofPath:   string(encoded),
		Evidence:    row.Evidence,
		Challenger:  row.Challenger,
		Bond:        row.Bond,
		Resolved:    row.Resolved,
		Confirmed:   row.Confirmed,
		FiledAt:     row.FiledAt,
		ResolvedAt:  row.ResolvedAt,
	}, nil
}

func toDomainFraudProof(rec fraudProofModel) (domain.FraudProof, error) {
	claimedRoot, err := domain.HashFromHex(strings.TrimSpace(rec.ClaimedRoot))
	if err != nil {
		return domain.FraudProof{}, err
	}
	var encodedPath []string
	if rec.ProofPath != "" {
		if err := json.Unmarshal([]byte(rec.ProofPath), &encodedPath); err != nil {
			return domain.FraudProof{}, err
		}
	}
	path := make([]domain.Hash, 0, len(encodedPath))
	for _, hex := range encodedPath {
		h, err := domain.HashFromHex(hex)
		if err != nil {
			return domain.FraudProof{}, err
		}
		path = append(path, h)
	}
	return domain.FraudProof{
		ProofID:     rec.ProofID,
		BatchID:     rec.BatchID,
		DisputeID:   rec.DisputeID,
		ClaimedRoot: claimedRoot,
		ProofPath:   path,
		Evidence:    rec.Evidence,
		Challenger:  rec.Challenger,
		Bond:        rec.Bond,
		Resolved:    rec.Resolved,
		Confirmed:   rec.Confirmed,
		FiledAt:     rec.FiledAt,
		ResolvedAt:  rec.ResolvedAt,
	}, nil
}

func toSequencerModel(row domain.Sequencer) sequencerModel {
	return sequencerModel{
		SequencerID:  row.SequencerID,
		BondAmount:   row.BondAmount,
		Active:       row.Active,
		IsPrimary:    row.Primary,
		RegisteredAt: row.RegisteredAt,
		ExitedAt:     row.ExitedAt,
	}
}

func toDomainSequencer(rec sequencerModel) domain.Sequencer {
	return domain.Sequencer{
		SequencerID:  rec.SequencerID,
		BondAmount:   rec.BondAmount,
		Active:       rec.Active,
		Primary:      rec.IsPrimary,
		RegisteredAt: rec.RegisteredAt,
		ExitedAt:     rec.ExitedAt,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

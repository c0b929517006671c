package postgres

import (
	"time"

	"github.com/google/uuid"
)

type disputeModel struct {
	DisputeID       uint64     `gorm:"column:dispute_id;primaryKey"`
	InitiatorRef    string     `gorm:"column:initiator_ref"`
	CounterpartyRef string     `gorm:"column:counterparty_ref"`
	EvidenceRoot    string     `gorm:"column:evidence_root"`
	DataHash        string     `gorm:"column:data_hash"`
	Stake           int64      `gorm:"column:stake"`
	Status          string     `gorm:"column:status"`
	BatchID         *uint64    `gorm:"column:batch_id"`
	Submitter       string     `gorm:"column:submitter"`
	SubmittedAt     time.Time  `gorm:"column:submitted_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (disputeModel) TableName() string { return "disputes" }

type pendingQueueModel struct {
	Position   uint64    `gorm:"column:position;primaryKey"`
	DisputeID  uint64    `gorm:"column:dispute_id"`
	DataHash   string    `gorm:"column:data_hash"`
	Stake      int64     `gorm:"column:stake"`
	EnqueuedAt time.Time `gorm:"column:enqueued_at"`
}

func (pendingQueueModel) TableName() string { return "pending_queue" }

type batchModel struct {
	BatchID        uint64     `gorm:"column:batch_id;primaryKey"`
	StateRoot      string     `gorm:"column:state_root"`
	DisputeRoot    string     `gorm:"column:dispute_root"`
	DisputeCount   int        `gorm:"column:dispute_count"`
	FirstDisputeID uint64     `gorm:"column:first_dispute_id"`
	LastDisputeID  uint64     `gorm:"column:last_dispute_id"`
	Submitter      string     `gorm:"column:submitter"`
	SubmittedAt    time.Time  `gorm:"column:submitted_at"`
	FinalizedAt    *time.Time `gorm:"column:finalized_at"`
	Challenged     bool       `gorm:"column:challenged"`
	Finalized      bool       `gorm:"column:finalized"`
	Rejected       bool       `gorm:"column:rejected"`
}

func (batchModel) TableName() string { return "batches" }

type fraudProofModel struct {
	ProofID     uint64     `gorm:"column:proof_id;primaryKey"`
	BatchID     uint64     `gorm:"column:batch_id"`
	DisputeID   *uint64    `gorm:"column:dispute_id"`
	ClaimedRoot string     `gorm:"column:claimed_root"`
	ProofPath   string     `gorm:"column:proof_path;type:jsonb"`
	Evidence    []byte     `gorm:"column:evidence"`
	Challenger  string     `gorm:"column:challenger"`
	Bond        int64      `gorm:"column:bond"`
	Resolved    bool       `gorm:"column:resolved"`
	Confirmed   bool       `gorm:"column:confirmed"`
	FiledAt     time.Time  `gorm:"column:filed_at"`
	ResolvedAt  *time.Time `gorm:"column:resolved_at"`
}

func (fraudProofModel) TableName() string { return "fraud_proofs" }

type sequencerModel struct {
	SequencerID  string     `gorm:"column:sequencer_id;primaryKey"`
	BondAmount   int64      `gorm:"column:bond_amount"`
	Active       bool       `gorm:"column:active"`
	IsPrimary    bool       `gorm:"column:is_primary"`
	RegisteredAt time.Time  `gorm:"column:registered_at"`
	ExitedAt     *time.Time `gorm:"column:exited_at"`
}

func (sequencerModel) TableName() string { return "sequencers" }

type chainStateModel struct {
	SingletonID   int16     `gorm:"column:singleton_id;primaryKey"`
	LastBatchID   uint64    `gorm:"column:last_batch_id"`
	LastStateRoot string    `gorm:"column:last_state_root"`
	LastBatchAt   time.Time `gorm:"column:last_batch_at"`
}

func (chainStateModel) TableName() string { return "chain_state" }

type ledgerEntryModel struct {
	EntryID    uuid.UUID `gorm:"column:entry_id;type:uuid;primaryKey"`
	Account    string    `gorm:"column:account"`
	EntryType  string    `gorm:"column:entry_type"`
	Amount     int64     `gorm:"column:amount"`
	EntityKind string    `gorm:"column:entity_kind"`
	EntityID   uint64    `gorm:"column:entity_id"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
}

func (ledgerEntryModel) TableName() string { return "ledger_entries" }

type controlModel struct {
	SingletonID  int16 `gorm:"column:singleton_id;primaryKey"`
	IntakePaused bool  `gorm:"column:intake_paused"`
}

func (controlModel) TableName() string { return "settlement_control" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "settlement_idempotency" }

type outboxModel struct {
	OutboxID     uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	EventClass   string     `gorm:"column:event_class"`
	Payload      string     `gorm:"column:payload;type:jsonb"`
	PartitionKey string     `gorm:"column:partition_key"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
	Attempts     int        `gorm:"column:attempts"`
	LastError    *string    `gorm:"column:last_error"`
}

func (outboxModel) TableName() string { return "settlement_outbox" }

type eventDedupModel struct {
	EventID   string    `gorm:"column:event_id;primaryKey"`
	EventType string    `gorm:"column:event_type"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string { return "settlement_event_dedup" }

package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type DisputeSubmittedPayload struct {
	DisputeID uint64 `json:"dispute_id"`
	DataHash  string `json:"data_hash"`
	Stake     int64  `json:"stake"`
	Submitter string `json:"submitter"`
	QueuedAt  string `json:"queued_at"`
}

type BatchCommittedPayload struct {
	BatchID        uint64 `json:"batch_id"`
	StateRoot      string `json:"state_root"`
	DisputeRoot    string `json:"dispute_root"`
	Count          int    `json:"count"`
	FirstDisputeID uint64 `json:"first_dispute_id"`
	LastDisputeID  uint64 `json:"last_dispute_id"`
	Submitter      string `json:"submitter"`
	SubmittedAt    string `json:"submitted_at"`
}

type BatchChallengedPayload struct {
	BatchID     uint64  `json:"batch_id"`
	ProofID     uint64  `json:"proof_id"`
	DisputeID   *uint64 `json:"dispute_id,omitempty"`
	ClaimedRoot string  `json:"claimed_root"`
	Challenger  string  `json:"challenger"`
	FiledAt     string  `json:"filed_at"`
}

type BatchRejectedPayload struct {
	BatchID          uint64 `json:"batch_id"`
	ProofID          uint64 `json:"proof_id"`
	Submitter        string `json:"submitter"`
	SlashedBond      int64  `json:"slashed_bond"`
	ChallengerPayout int64  `json:"challenger_payout"`
	RevertedCount    int    `json:"reverted_count"`
	RejectedAt       string `json:"rejected_at"`
}

type BatchFinalizedPayload struct {
	BatchID     uint64 `json:"batch_id"`
	StateRoot   string `json:"state_root"`
	Count       int    `json:"count"`
	FinalizedAt string `json:"finalized_at"`
}

type FraudProofResolvedPayload struct {
	ProofID    uint64 `json:"proof_id"`
	BatchID    uint64 `json:"batch_id"`
	Confirmed  bool   `json:"confirmed"`
	Refund     int64  `json:"refund"`
	Fee        int64  `json:"fee"`
	ResolvedAt string `json:"resolved_at"`
}

type AnchorBatchReceivedPayload struct {
	BatchID     uint64 `json:"batch_id"`
	StateRoot   string `json:"state_root"`
	DisputeRoot string `json:"dispute_root"`
	Count       int    `json:"count"`
}

type AnchorBatchFinalizedPayload struct {
	BatchID   uint64 `json:"batch_id"`
	StateRoot string `json:"state_root"`
}

// DisputeIntakeRequestedPayload is the inbound intake feed: upstream services
// publish it on the intake topic and the consumer worker turns it into a
// SubmitDispute call under the system role. EvidenceRoot is optional hex.
type DisputeIntakeRequestedPayload struct {
	InitiatorRef    string `json:"initiator_ref"`
	CounterpartyRef string `json:"counterparty_ref"`
	EvidenceRoot    string `json:"evidence_root,omitempty"`
	Stake           int64  `json:"stake"`
	ValueAttached   int64  `json:"value_attached"`
}

// DLQRecord wraps an envelope that exhausted delivery attempts or was
// rejected as unprocessable, parked on the dead-letter topic for operators.
type DLQRecord struct {
	OriginalEvent EventEnvelope `json:"original_event"`
	ErrorSummary  string        `json:"error_summary"`
	RetryCount    int           `json:"retry_count"`
	FirstSeenAt   time.Time     `json:"first_seen_at"`
	LastErrorAt   time.Time     `json:"last_error_at"`
	SourceTopic   string        `json:"source_topic,omitempty"`
	DLQTopic      string        `json:"dlq_topic,omitempty"`
	TraceID       string        `json:"trace_id,omitempty"`
}

package domain

import "time"

const (
	DisputeStatusPending   = "pending"
	DisputeStatusActive    = "active"
	DisputeStatusFinalized = "finalized"
	DisputeStatusRejected  = "rejected"
)

// Dispute is one settlement record. IDs are assigned monotonically at intake
// and never reused. BatchID is write-once: it is set exactly when the dispute
// is committed into a batch.
type Dispute struct {
	DisputeID       uint64
	InitiatorRef    string
	CounterpartyRef string
	EvidenceRoot    Hash
	DataHash        Hash
	Stake           int64
	Status          string
	BatchID         *uint64
	Submitter       string
	SubmittedAt     time.Time
	UpdatedAt       time.Time
}

// ValidateStatusTransition enforces the dispute lifecycle:
// pending → active → {finalized | rejected}. The only regression is
// active → rejected, driven by confirmed fraud on the containing batch.
func ValidateStatusTransition(from, to string) error {
	if from == to {
		return nil
	}
	allowed := map[string]map[string]bool{
		DisputeStatusPending: {DisputeStatusActive: true},
		DisputeStatusActive:  {DisputeStatusFinalized: true, DisputeStatusRejected: true},
	}
	if next, ok := allowed[from]; ok && next[to] {
		return nil
	}
	return ErrInvalidStateTransition
}

func IsTerminalDisputeStatus(status string) bool {
	return status == DisputeStatusFinalized || status == DisputeStatusRejected
}

// PendingDispute is the compact queue record kept per unbatched dispute.
// Position is a monotonic FIFO key; entries leave the queue only through
// batch inclusion.
type PendingDispute struct {
	Position   uint64
	DisputeID  uint64
	DataHash   Hash
	Stake      int64
	EnqueuedAt time.Time
}

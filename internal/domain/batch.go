package domain

import (
	"encoding/binary"
	"time"
)

const (
	BatchStatusSubmitted  = "submitted"
	BatchStatusChallenged = "challenged"
	BatchStatusFinalized  = "finalized"
	BatchStatusRejected   = "rejected"
)

// Batch is one committed group of disputes under a single merkle-rooted
// state commitment. Rejected is sticky: once fraud is confirmed the batch
// can never finalize.
type Batch struct {
	BatchID        uint64
	StateRoot      Hash
	DisputeRoot    Hash
	Count          int
	FirstDisputeID uint64
	LastDisputeID  uint64
	Submitter      string
	SubmittedAt    time.Time
	FinalizedAt    *time.Time
	Challenged     bool
	Finalized      bool
	Rejected       bool
}

func (b Batch) Status() string {
	switch {
	case b.Rejected:
		return BatchStatusRejected
	case b.Finalized:
		return BatchStatusFinalized
	case b.Challenged:
		return BatchStatusChallenged
	default:
		return BatchStatusSubmitted
	}
}

// ChallengeDeadline is the end of the fraud window for this batch.
func (b Batch) ChallengeDeadline(period time.Duration) time.Time {
	return b.SubmittedAt.Add(period)
}

// ComputeStateRoot chains a batch commitment onto its predecessor:
// stateRoot_n = H(stateRoot_{n-1} ‖ disputeRoot_n ‖ submittedAt_n).
// Replaying the same inputs always reproduces the same root.
func ComputeStateRoot(prev Hash, disputeRoot Hash, submittedAt time.Time) Hash {
	buf := make([]byte, 0, 2*HashSize+8)
	buf = append(buf, prev[:]...)
	buf = append(buf, disputeRoot[:]...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(submittedAt.Unix()))
	buf = append(buf, ts[:]...)
	return HashBytes(buf)
}

// ChainState is the hash-chain head. It is a singleton row updated atomically
// with every batch commit; LastBatchAt is initialized to service genesis so
// the interval trigger cannot fire before any dispute exists.
type ChainState struct {
	LastBatchID   uint64
	LastStateRoot Hash
	LastBatchAt   time.Time
}

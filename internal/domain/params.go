package domain

import (
	"fmt"
	"time"
)

// Params are the settlement-core economics and timing knobs. All amounts are
// non-negative integers in base units; the core never touches floating point.
type Params struct {
	MinBatchSize    int
	MaxBatchSize    int
	BatchInterval   time.Duration
	ChallengePeriod time.Duration
	SequencerBond   int64
	FraudProofBond  int64
}

func DefaultParams() Params {
	return Params{
		MinBatchSize:    3,
		MaxBatchSize:    100,
		BatchInterval:   time.Hour,
		ChallengePeriod: 7 * 24 * time.Hour,
		SequencerBond:   10_000,
		FraudProofBond:  1_000,
	}
}

func (p Params) Validate() error {
	if p.MinBatchSize <= 0 || p.MaxBatchSize <= 0 || p.MinBatchSize > p.MaxBatchSize {
		return fmt.Errorf("%w: batch size bounds [%d, %d]", ErrInvalidInput, p.MinBatchSize, p.MaxBatchSize)
	}
	if p.BatchInterval <= 0 || p.ChallengePeriod <= 0 {
		return fmt.Errorf("%w: intervals must be positive", ErrInvalidInput)
	}
	if p.SequencerBond <= 0 || p.FraudProofBond <= 0 {
		return fmt.Errorf("%w: bonds must be positive", ErrInvalidInput)
	}
	return nil
}

// CanSubmitBatch is the rate-limited greedy trigger: a full minimum batch
// commits immediately, and a non-empty remainder commits once the interval
// since the previous batch has elapsed. An empty queue never triggers.
func (p Params) CanSubmitBatch(pendingSize int, lastBatchAt, now time.Time) bool {
	if pendingSize <= 0 {
		return false
	}
	if pendingSize >= p.MinBatchSize {
		return true
	}
	return now.Sub(lastBatchAt) >= p.BatchInterval
}

package domain

import "time"

// Sequencer is a bonded operator authorized to commit batches. An active
// sequencer's bond never drops below Params.SequencerBond except through
// slashing, which zeroes it and deactivates the operator in one step.
type Sequencer struct {
	SequencerID  string
	BondAmount   int64
	Active       bool
	Primary      bool
	RegisteredAt time.Time
	ExitedAt     *time.Time
}

package domain

import "time"

// FraudProof is a bonded claim that a committed batch root is wrong.
// DisputeID is optional: a challenge may target the whole batch or one
// included dispute. A filed proof terminates only via resolution.
type FraudProof struct {
	ProofID     uint64
	BatchID     uint64
	DisputeID   *uint64
	ClaimedRoot Hash
	ProofPath   []Hash
	Evidence    []byte
	Challenger  string
	Bond        int64
	Resolved    bool
	Confirmed   bool
	FiledAt     time.Time
	ResolvedAt  *time.Time
}

// ChallengerPayout is the reward on confirmed fraud: half the slashed bond
// plus the challenger's own bond back.
func ChallengerPayout(slashedBond, proofBond int64) int64 {
	return slashedBond/2 + proofBond
}

// UnconfirmedRefund splits a losing challenger's bond into the 90% refund
// and the 10% deterrence fee retained by the service.
func UnconfirmedRefund(proofBond int64) (refund, fee int64) {
	refund = proofBond * 9 / 10
	return refund, proofBond - refund
}

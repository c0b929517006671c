package domain

import "time"

const (
	LedgerEntryStakePosted      = "stake_posted"
	LedgerEntryBondPosted       = "bond_posted"
	LedgerEntryBondExit         = "bond_exit"
	LedgerEntryBondRefund       = "bond_refund"
	LedgerEntrySlash            = "slash"
	LedgerEntryChallengerPayout = "challenger_payout"
	LedgerEntryDeterrenceFee    = "deterrence_fee"
)

// LedgerEntry is an append-only record of every stake/bond movement through
// the settlement core. EntityID references the dispute, batch or proof the
// movement belongs to.
type LedgerEntry struct {
	EntryID    string
	Account    string
	EntryType  string
	Amount     int64
	EntityKind string
	EntityID   uint64
	OccurredAt time.Time
}

package contracts

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type SubmitDisputeRequest struct {
	InitiatorRef    string `json:"initiator_ref"`
	CounterpartyRef string `json:"counterparty_ref"`
	EvidenceRoot    string `json:"evidence_root"`
	Stake           int64  `json:"stake"`
	ValueAttached   int64  `json:"value_attached"`
}

type SubmitDisputeBatchRequest struct {
	InitiatorRefs    []string `json:"initiator_refs"`
	CounterpartyRefs []string `json:"counterparty_refs"`
	EvidenceRoots    []string `json:"evidence_roots"`
	Stakes           []int64  `json:"stakes"`
	ValueAttached    int64    `json:"value_attached"`
}

type DisputeResponse struct {
	DisputeID       uint64  `json:"dispute_id"`
	InitiatorRef    string  `json:"initiator_ref"`
	CounterpartyRef string  `json:"counterparty_ref"`
	EvidenceRoot    string  `json:"evidence_root"`
	DataHash        string  `json:"data_hash"`
	Stake           int64   `json:"stake"`
	Status          string  `json:"status"`
	BatchID         *uint64 `json:"batch_id,omitempty"`
	SubmittedAt     string  `json:"submitted_at"`
}

type RegisterSequencerRequest struct {
	Bond int64 `json:"bond"`
}

type SequencerResponse struct {
	SequencerID  string `json:"sequencer_id"`
	BondAmount   int64  `json:"bond_amount"`
	Active       bool   `json:"active"`
	Primary      bool   `json:"primary"`
	RegisteredAt string `json:"registered_at"`
}

type BatchResponse struct {
	BatchID        uint64 `json:"batch_id"`
	StateRoot      string `json:"state_root"`
	DisputeRoot    string `json:"dispute_root"`
	Count          int    `json:"count"`
	FirstDisputeID uint64 `json:"first_dispute_id"`
	LastDisputeID  uint64 `json:"last_dispute_id"`
	Submitter      string `json:"submitter"`
	Status         string `json:"status"`
	Challenged     bool   `json:"challenged"`
	Finalized      bool   `json:"finalized"`
	SubmittedAt    string `json:"submitted_at"`
	FinalizedAt    string `json:"finalized_at,omitempty"`
}

type ChainHeadResponse struct {
	LastBatchID   uint64 `json:"last_batch_id"`
	LastStateRoot string `json:"last_state_root"`
	LastBatchAt   string `json:"last_batch_at"`
	PendingSize   int    `json:"pending_size"`
	CanSubmit     bool   `json:"can_submit"`
}

type ChallengeBatchRequest struct {
	DisputeID    *uint64  `json:"dispute_id,omitempty"`
	ClaimedRoot  string   `json:"claimed_root"`
	ProofPath    []string `json:"proof_path"`
	Evidence     string   `json:"evidence"`
	BondAttached int64    `json:"bond_attached"`
}

type FraudProofResponse struct {
	ProofID     uint64  `json:"proof_id"`
	BatchID     uint64  `json:"batch_id"`
	DisputeID   *uint64 `json:"dispute_id,omitempty"`
	ClaimedRoot string  `json:"claimed_root"`
	Challenger  string  `json:"challenger"`
	Bond        int64   `json:"bond"`
	Resolved    bool    `json:"resolved"`
	Confirmed   bool    `json:"confirmed"`
	FiledAt     string  `json:"filed_at"`
}

type ResolveFraudProofRequest struct {
	Confirmed bool `json:"confirmed"`
}

type LedgerEntryResponse struct {
	EntryID    string `json:"entry_id"`
	Account    string `json:"account"`
	EntryType  string `json:"entry_type"`
	Amount     int64  `json:"amount"`
	EntityKind string `json:"entity_kind"`
	EntityID   uint64 `json:"entity_id"`
	OccurredAt string `json:"occurred_at"`
}

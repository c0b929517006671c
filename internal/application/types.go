package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/ports"
)

type Config struct {
	ServiceName          string
	Params               domain.Params
	IdempotencyTTL       time.Duration
	EventDedupTTL        time.Duration
	OutboxFlushBatchSize int
	OutboxMaxAttempts    int
}

// Actor carries the ambient call context explicitly: who is calling and
// under which role. Time is supplied by the service clock, attached value by
// the individual inputs; core logic never reads either ambiently.
type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

const (
	RoleUser       = "user"
	RoleSystem     = "system"
	RoleSequencer  = "sequencer"
	RoleArbitrator = "arbitrator"
	RoleAdmin      = "admin"
)

const (
	CapSubmitDispute    = "dispute.submit"
	CapRegisterSequence = "sequencer.register"
	CapCommitBatch      = "batch.commit"
	CapFinalizeBatch    = "batch.finalize"
	CapChallengeBatch   = "fraud.challenge"
	CapResolveFraud     = "fraud.resolve"
	CapAdminControl     = "intake.control"
)

type SubmitDisputeInput struct {
	InitiatorRef    string
	CounterpartyRef string
	EvidenceRoot    domain.Hash
	Stake           int64
	ValueAttached   int64
}

type SubmitDisputeBatchInput struct {
	InitiatorRefs    []string
	CounterpartyRefs []string
	EvidenceRoots    []domain.Hash
	Stakes           []int64
	ValueAttached    int64
}

type RegisterSequencerInput struct {
	Bond int64
}

type ChallengeBatchInput struct {
	BatchID      uint64
	DisputeID    *uint64
	ClaimedRoot  domain.Hash
	ProofPath    []domain.Hash
	Evidence     []byte
	BondAttached int64
}

type ChainHead struct {
	State       domain.ChainState
	PendingSize int
	CanSubmit   bool
}

// Service is the settlement core. Every operation runs under one global
// mutex: calls are serialized and atomic relative to each other, matching
// how a ledger serializes transactions. Unmet preconditions are errors, not
// waits; callers poll and retry.
type Service struct {
	cfg Config
	mu  sync.Mutex

	disputes    ports.DisputeRepository
	pending     ports.PendingQueueRepository
	batches     ports.BatchRepository
	proofs      ports.FraudProofRepository
	sequencers  ports.SequencerRepository
	chainState  ports.ChainStateRepository
	ledger      ports.LedgerEntryRepository
	control     ports.ControlRepository
	idempotency ports.IdempotencyRepository
	outbox      ports.OutboxRepository

	events ports.EventPublisher
	anchor ports.AnchorClient
	tx     ports.Transactor

	roleGrants map[string]map[string]bool
	nowFn      func() time.Time
}

type Dependencies struct {
	Config      Config
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
	Events      ports.EventPublisher
	Anchor      ports.AnchorClient
	Tx          ports.Transactor
}

// directTx is the fallback unit of work: the in-memory stores are already
// serialized by the service mutex, so fn runs straight through.
type directTx struct{}

func (directTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M46-Dispute-Settlement-Service"
	}
	if cfg.Params == (domain.Params{}) {
		cfg.Params = domain.DefaultParams()
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = 7 * 24 * time.Hour
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	if cfg.OutboxMaxAttempts <= 0 {
		cfg.OutboxMaxAttempts = 5
	}
	tx := deps.Tx
	if tx == nil {
		tx = directTx{}
	}
	return &Service{
		cfg:         cfg,
		disputes:    deps.Disputes,
		pending:     deps.Pending,
		batches:     deps.Batches,
		proofs:      deps.Proofs,
		sequencers:  deps.Sequencers,
		chainState:  deps.ChainState,
		ledger:      deps.Ledger,
		control:     deps.Control,
		idempotency: deps.Idempotency,
		outbox:      deps.Outbox,
		events:      deps.Events,
		anchor:      deps.Anchor,
		tx:          tx,
		roleGrants:  defaultRoleGrants(),
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock swaps the service clock. Tests use this to drive challenge
// periods and batch intervals deterministically.
func (s *Service) WithClock(nowFn func() time.Time) *Service {
	if nowFn != nil {
		s.nowFn = nowFn
	}
	return s
}

func defaultRoleGrants() map[string]map[string]bool {
	return map[string]map[string]bool{
		CapSubmitDispute:    {RoleUser: true, RoleSystem: true, RoleAdmin: true},
		CapRegisterSequence: {RoleSequencer: true, RoleSystem: true, RoleAdmin: true},
		CapCommitBatch:      {RoleSequencer: true, RoleSystem: true},
		CapFinalizeBatch:    {RoleUser: true, RoleSystem: true, RoleSequencer: true, RoleArbitrator: true, RoleAdmin: true},
		CapChallengeBatch:   {RoleUser: true, RoleSystem: true, RoleSequencer: true, RoleAdmin: true},
		CapResolveFraud:     {RoleArbitrator: true},
		CapAdminControl:     {RoleAdmin: true},
	}
}

// authorize is the single capability gate: explicit caller, explicit
// required capability, no ambient owner concept.
func (s *Service) authorize(actor Actor, capability string) error {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ErrUnauthorized
	}
	allowed, ok := s.roleGrants[capability]
	if !ok {
		return domain.ErrForbidden
	}
	if !allowed[strings.ToLower(strings.TrimSpace(actor.Role))] {
		return domain.ErrForbidden
	}
	return nil
}

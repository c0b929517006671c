package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/ports"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type capturedEvent struct {
	EventType    string
	PartitionKey string
}

type capturePublisher struct {
	events []capturedEvent
}

func (p *capturePublisher) Publish(_ context.Context, eventType string, _ []byte, partitionKey string) error {
	p.events = append(p.events, capturedEvent{EventType: eventType, PartitionKey: partitionKey})
	return nil
}

type captureAnchor struct {
	received   []uint64
	finalized  []uint64
	receiveErr error
}

func (a *captureAnchor) ReceiveBatch(_ context.Context, batchID uint64, _, _ domain.Hash, _ int) error {
	if a.receiveErr != nil {
		return a.receiveErr
	}
	a.received = append(a.received, batchID)
	return nil
}

func (a *captureAnchor) FinalizeBatch(_ context.Context, batchID uint64, _ domain.Hash) error {
	a.finalized = append(a.finalized, batchID)
	return nil
}

type fixture struct {
	svc       *application.Service
	repos     *memory.Repositories
	clock     *fakeClock
	publisher *capturePublisher
	anchor    *captureAnchor
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithTx(t, nil)
}

func newFixtureWithTx(t *testing.T, tx ports.Transactor) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	repos := memory.NewRepositories(clock.now)
	publisher := &capturePublisher{}
	anchor := &captureAnchor{}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			Params: domain.DefaultParams(),
		},
		Disputes:    repos.Disputes,
		Pending:     repos.Pending,
		Batches:     repos.Batches,
		Proofs:      repos.Proofs,
		Sequencers:  repos.Sequencers,
		ChainState:  repos.ChainState,
		Ledger:      repos.Ledger,
		Control:     repos.Control,
		Idempotency: repos.Idempotency,
		Outbox:      repos.Outbox,
		Events:      publisher,
		Anchor:      anchor,
		Tx:          tx,
	}).WithClock(clock.Now)

	return &fixture{svc: svc, repos: repos, clock: clock, publisher: publisher, anchor: anchor}
}

func userActor(key string) application.Actor {
	return application.Actor{SubjectID: "user-1", Role: application.RoleUser, RequestID: "trace-1", IdempotencyKey: key}
}

func sequencerActor() application.Actor {
	return application.Actor{SubjectID: "seq-1", Role: application.RoleSequencer, RequestID: "trace-1"}
}

func arbitratorActor() application.Actor {
	return application.Actor{SubjectID: "arb-1", Role: application.RoleArbitrator, RequestID: "trace-1"}
}

func adminActor() application.Actor {
	return application.Actor{SubjectID: "admin-1", Role: application.RoleAdmin, RequestID: "trace-1"}
}

func (f *fixture) submitDispute(t *testing.T, n int) domain.Dispute {
	t.Helper()
	dispute, err := f.svc.SubmitDispute(context.Background(), userActor(fmt.Sprintf("submit-%d", n)), application.SubmitDisputeInput{
		InitiatorRef:    fmt.Sprintf("claimant-%d", n),
		CounterpartyRef: fmt.Sprintf("respondent-%d", n),
		EvidenceRoot:    domain.HashBytes([]byte(fmt.Sprintf("evidence-%d", n))),
		Stake:           int64(100 * n),
		ValueAttached:   int64(100 * n),
	})
	if err != nil {
		t.Fatalf("submit dispute %d: %v", n, err)
	}
	return dispute
}

func (f *fixture) registerSequencer(t *testing.T) domain.Sequencer {
	t.Helper()
	seq, err := f.svc.RegisterSequencer(context.Background(), sequencerActor(), application.RegisterSequencerInput{Bond: 10_000})
	if err != nil {
		t.Fatalf("register sequencer: %v", err)
	}
	return seq
}

func (f *fixture) commitBatch(t *testing.T) domain.Batch {
	t.Helper()
	batch, err := f.svc.CommitBatch(context.Background(), sequencerActor())
	if err != nil {
		t.Fatalf("commit batch: %v", err)
	}
	return batch
}

func TestSubmitDisputeAssignsMonotonicIDs(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	first := f.submitDispute(t, 1)
	second := f.submitDispute(t, 2)
	if first.DisputeID != 1 || second.DisputeID != 2 {
		t.Fatalf("expected IDs 1 and 2, got %d and %d", first.DisputeID, second.DisputeID)
	}
	if first.Status != domain.DisputeStatusPending {
		t.Fatalf("expected pending status, got %s", first.Status)
	}
	if first.BatchID != nil {
		t.Fatalf("expected no batch assignment at intake")
	}
}

func TestSubmitDisputeRejectsDuplicateOpenDispute(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.submitDispute(t, 1)
	_, err := f.svc.SubmitDispute(context.Background(), userActor("dup-key"), application.SubmitDisputeInput{
		InitiatorRef:    "claimant-1",
		CounterpartyRef: "respondent-1",
		EvidenceRoot:    domain.HashBytes([]byte("evidence-1")),
		Stake:           100,
		ValueAttached:   100,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for duplicate open dispute, got %v", err)
	}
}

func TestSubmitDisputeRequiresFunding(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.SubmitDispute(context.Background(), userActor("underfunded"), application.SubmitDisputeInput{
		InitiatorRef:    "claimant-1",
		CounterpartyRef: "respondent-1",
		Stake:           100,
		ValueAttached:   99,
	})
	if !errors.Is(err, domain.ErrInsufficientStake) {
		t.Fatalf("expected insufficient stake, got %v", err)
	}
}

func TestSubmitDisputeIdempotentReplay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	input := application.SubmitDisputeInput{
		InitiatorRef:    "claimant-1",
		CounterpartyRef: "respondent-1",
		Stake:           100,
		ValueAttached:   100,
	}
	first, err := f.svc.SubmitDispute(context.Background(), userActor("replay-key"), input)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := f.svc.SubmitDispute(context.Background(), userActor("replay-key"), input)
	if err != nil {
		t.Fatalf("replay submit: %v", err)
	}
	if first.DisputeID != second.DisputeID {
		t.Fatalf("expected replay to return the original dispute")
	}

	input.Stake = 200
	input.ValueAttached = 200
	if _, err := f.svc.SubmitDispute(context.Background(), userActor("replay-key"), input); !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict for reused key, got %v", err)
	}

	if _, err := f.svc.SubmitDispute(context.Background(), userActor(""), input); !errors.Is(err, domain.ErrIdempotencyRequired) {
		t.Fatalf("expected idempotency key requirement, got %v", err)
	}
}

func TestSubmitDisputeBatchAllOrNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	actor := userActor("vector-key")
	_, err := f.svc.SubmitDisputeBatch(context.Background(), actor, application.SubmitDisputeBatchInput{
		InitiatorRefs:    []string{"a", "b"},
		CounterpartyRefs: []string{"x", "y"},
		EvidenceRoots:    []domain.Hash{{}, {}},
		Stakes:           []int64{100, 200},
		ValueAttached:    250,
	})
	if !errors.Is(err, domain.ErrInsufficientStake) {
		t.Fatalf("expected insufficient stake for underfunded vector, got %v", err)
	}

	head, err := f.svc.GetChainHead(context.Background(), actor)
	if err != nil {
		t.Fatalf("chain head: %v", err)
	}
	if head.PendingSize != 0 {
		t.Fatalf("expected nothing queued after rejected vector, got %d", head.PendingSize)
	}

	disputes, err := f.svc.SubmitDisputeBatch(context.Background(), userActor("vector-key-2"), application.SubmitDisputeBatchInput{
		InitiatorRefs:    []string{"a", "b"},
		CounterpartyRefs: []string{"x", "y"},
		EvidenceRoots:    []domain.Hash{{}, {}},
		Stakes:           []int64{100, 200},
		ValueAttached:    300,
	})
	if err != nil {
		t.Fatalf("funded vector: %v", err)
	}
	if len(disputes) != 2 || disputes[0].DisputeID != 1 || disputes[1].DisputeID != 2 {
		t.Fatalf("unexpected vector admission: %+v", disputes)
	}
}

func TestPauseIntakeBlocksSubmissions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if err := f.svc.PauseIntake(context.Background(), adminActor()); err != nil {
		t.Fatalf("pause intake: %v", err)
	}
	_, err := f.svc.SubmitDispute(context.Background(), userActor("paused-key"), application.SubmitDisputeInput{
		InitiatorRef:    "claimant-1",
		CounterpartyRef: "respondent-1",
		Stake:           100,
		ValueAttached:   100,
	})
	if !errors.Is(err, domain.ErrIntakePaused) {
		t.Fatalf("expected paused intake, got %v", err)
	}

	if err := f.svc.ResumeIntake(context.Background(), adminActor()); err != nil {
		t.Fatalf("resume intake: %v", err)
	}
	f.submitDispute(t, 1)

	if err := f.svc.PauseIntake(context.Background(), userActor("nope")); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for non-admin pause, got %v", err)
	}
}

func TestRegisterSequencerBondAndPrimary(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.RegisterSequencer(context.Background(), sequencerActor(), application.RegisterSequencerInput{Bond: 9_999})
	if !errors.Is(err, domain.ErrInsufficientBond) {
		t.Fatalf("expected insufficient bond, got %v", err)
	}

	seq := f.registerSequencer(t)
	if !seq.Active || !seq.Primary || seq.BondAmount != 10_000 {
		t.Fatalf("unexpected sequencer state: %+v", seq)
	}

	if _, err := f.svc.RegisterSequencer(context.Background(), sequencerActor(), application.RegisterSequencerInput{Bond: 10_000}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for duplicate registration, got %v", err)
	}

	second, err := f.svc.RegisterSequencer(context.Background(), application.Actor{SubjectID: "seq-2", Role: application.RoleSequencer}, application.RegisterSequencerInput{Bond: 12_000})
	if err != nil {
		t.Fatalf("register second sequencer: %v", err)
	}
	if second.Primary {
		t.Fatalf("expected second registrant to not take the primary slot")
	}
}

func TestCommitBatchSizeTrigger(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.registerSequencer(t)

	_, err := f.svc.CommitBatch(context.Background(), sequencerActor())
	if !errors.Is(err, domain.ErrBatchNotReady) {
		t.Fatalf("expected not ready on empty queue, got %v", err)
	}

	f.submitDispute(t, 1)
	f.submitDispute(t, 2)
	f.submitDispute(t, 3)

	batch := f.commitBatch(t)
	if batch.BatchID != 1 || batch.Count != 3 || batch.FirstDisputeID != 1 || batch.LastDisputeID != 3 {
		t.Fatalf("unexpected batch: %+v", batch)
	}
	if batch.StateRoot.IsZero() || batch.DisputeRoot.IsZero() {
		t.Fatalf("expected non-zero roots")
	}

	for id := uint64(1); id <= 3; id++ {
		dispute, err := f.svc.GetDispute(context.Background(), userActor(""), id)
		if err != nil {
			t.Fatalf("get dispute %d: %v", id, err)
		}
		if dispute.Status != domain.DisputeStatusActive {
			t.Fatalf("expected dispute %d active, got %s", id, dispute.Status)
		}
		if dispute.BatchID == nil || *dispute.BatchID != batch.BatchID {
			t.Fatalf("expected dispute %d assigned to batch %d", id, batch.BatchID)
		}
	}

	head, err := f.svc.GetChainHead(context.Background(), sequencerActor())
	if err != nil {
		t.Fatalf("chain head: %v", err)
	}
	if head.PendingSize != 0 || head.State.LastBatchID != batch.BatchID || head.State.LastStateRoot != batch.StateRoot {
		t.Fatalf("unexpected chain head: %+v", head)
	}
}

func TestCommitBatchIntervalTrigger(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.registerSequencer(t)

	f.submitDispute(t, 1)
	f.submitDispute(t, 2)

	_, err := f.svc.CommitBatch(context.Background(), sequencerActor())
	if !errors.Is(err, domain.ErrBatchNotReady) {
		t.Fatalf("expected not ready below minimum before interval, got %v", err)
	}

	f.clock.Advance(time.Hour)
	batch := f.commitBatch(t)
	if batch.Count != 2 {
		t.Fatalf("expected remainder batch of 2, got %d", batch.Count)
	}
}

func TestCommitBatchRequiresActiveSequencer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.submitDispute(t, 1)
	f.submitDispute(t, 2)
	f.submitDispute(t, 3)

	_, err := f.svc.CommitBatch(context.Background(), sequencerActor())
	if !errors.Is(err, domain.ErrSequencerInactive) {
		t.Fatalf("expected inactive sequencer, got %v", err)
	}
	_, err = f.svc.CommitBatch(context.Background(), userActor(""))
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for user role, got %v", err)
	}
}

func TestChainRootContinuity(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.registerSequencer(t)

	f.submitDispute(t, 1)
	f.submitDispute(t, 2)
	f.submitDispute(t, 3)
	first := f.commitBatch(t)

	f.clock.Advance(time.Minute)
	f.submitDispute(t, 4)
	f.submitDispute(t, 5)
	f.submitDispute(t, 6)
	second := f.commitBatch(t)

	want := domain.ComputeStateRoot(first.StateRoot, second.DisputeRoot, second.SubmittedAt)
	if second.StateRoot != want {
		t.Fatalf("expected second root chained onto first")
	}
}

func challengeInput(batchID uint64) application.ChallengeBatchInput {
	return application.ChallengeBatchInput{
		BatchID:      batchID,
		ClaimedRoot:  domain.HashBytes([]byte("claimed")),
		BondAttached: 1_000,
	}
}

func TestChallengeBlocksFinalization(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.registerSequencer(t)
	f.submitDispute(t, 1)
	f.submitDispute(t, 2)
	f.submitDispute(t, 3)
	batch := f.commitBatch(t)

	proof, err := f.svc.ChallengeBatch(context.Background(), userActor(""), challengeInput(batch.BatchID))
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	if proof.ProofID != 1 || proof.Bond != 1_000 {
		t.Fatalf("unexpected proof: %+v", proof)
	}

	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err = f.svc.FinalizeBatch(context.Background(), sequencerActor(), batch.BatchID)
	if !errors.Is(err, domain.ErrBatchChallenged) {
		t.Fatalf("expected challenged batch to block finalization, got %v", err)
	}

	resolved, err := f.svc.ResolveFraudProof(context.Background(), arbitratorActor(), proof.ProofID, false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolved.Resolved || resolved.Confirmed {
		t.Fatalf("expected unconfirmed resolution, got %+v", resolved)
	}

	entries, err := f.svc.ListLedgerEntries(context.Background(), userActor(""), "user-1")
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	var refund int64
	for _, entry := range entries {
		if entry.EntryType == domain.LedgerEntryBondRefund {
			refund = entry.Amount
		}
	}
	if refund != 900 {
		t.Fatalf("expected 90%% bond refund, got %d", refund)
	}

	final, err := f.svc.FinalizeBatch(context.Background(), sequencerActor(), batch.BatchID)
	if err != nil {
		t.Fatalf("finalize after resolution: %v", err)
	}
	if !final.Finalized || final.FinalizedAt == nil {
		t.Fatalf("expected finalized batch, got %+v", final)
	}
	dispute, err := f.svc.GetDispute(context.Background(), userActor(""), 1)
	if err != nil {
		t.Fatalf("get dispute: %v", err)
	}
	if dispute.Status != domain.DisputeStatusFinalized {
		t.Fatalf("expected dispute finalized with batch, got %s", dispute.Status)
	}
}

func TestChallengeValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.registerSequencer(t)
	f.submitDispute(t, 1)
	f.submitDispute(t, 2)
	f.submitDispute(t, 3)
	batch := f.commitBatch(t)

	input := challengeInput(batch.BatchID)
	input.ClaimedRoot = domain.ZeroHash
	if _, err := f.svc.ChallengeBatch(context.Background(), userActor(""), input); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero claimed root, got %v", err)
	}

	input = challengeInput(batch.BatchID)
	input.BondAttached = 999
	if _, err := f.svc.ChallengeBatch(context.Background(), userActor(""), input); !errors.Is(err, domain.ErrInsufficientBond) {
		t.Fatalf("expected insufficient bond, got %v", err)
	}

	outside := uint64(99)
	input = challengeInput(batch.BatchID)
	input.DisputeID = &outside
	if _, err := f.svc.ChallengeBatch(context.Background(), userActor(""), input); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for dispute outside batch range, got %v", err)
	}

	f.clock.Advance(7*24*time.Hour + time.Second)
	if _, err := f.svc.ChallengeBatch(context.Background(), userActor(""), challengeInput(batch.BatchID)); !errors.Is(err, domain.ErrChallengeWindowClosed) {
		t.Fatalf("expected closed window, got %v", err)
	}
}

func TestConfirmedFraudSlashesAndRejects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.registerSequencer(t)
	f.submitDispute(t, 1)
	f.submitDispute(t, 2)
	f.submitDispute(t, 3)
	batch := f.commitBatch(t)

	challenger := application.Actor{SubjectID: "watcher-1", Role: application.RoleUser, RequestID: "trace-1"}
	proof, err := f.svc.ChallengeBatch(context.Background(), challenger, challengeInput(batch.BatchID))
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}

	resolved, err := f.svc.ResolveFraudProof(context.Background(), arbitratorActor(), proof.ProofID, true)
	if err != nil {
		t.Fatalf("resolve confirmed: %v", err)
	}
	if !resolved.Confirmed {
		t.Fatalf("expected confirmed proof")
	}

	seqs, err := f.svc.ListSequencers(context.Background(), userActor(""))
	if err != nil {
		t.Fatalf("list sequencers: %v", err)
	}
	if len(seqs) != 0 {
		t.Fatalf("expected slashed sequencer deactivated, got %+v", seqs)
	}

	entries, err := f.svc.ListLedgerEntries(context.Background(), userActor(""), "watcher-1")
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	var payout int64
	for _, entry := range entries {
		if entry.EntryType == domain.LedgerEntryChallengerPayout {
			payout = entry.Amount
		}
	}
	if payout != 6_000 {
		t.Fatalf("expected challenger payout 6000 (half slash plus bond), got %d", payout)
	}

	got, err := f.svc.GetBatch(context.Background(), userActor(""), batch.BatchID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if !got.Rejected || got.Status() != domain.BatchStatusRejected {
		t.Fatalf("expected rejected batch, got %+v", got)
	}

	for id := uint64(1); id <= 3; id++ {
		dispute, err := f.svc.GetDispute(context.Background(), userActor(""), id)
		if err != nil {
			t.Fatalf("get dispute %d: %v", id, err)
		}
		if dispute.Status != domain.DisputeStatusRejected {
			t.Fatalf("expected dispute %d reverted, got %s", id, dispute.Status)
		}
	}

	// rejection is sticky
	f.clock.Advance(7*24*time.Hour + time.Second)
	if _, err := f.svc.FinalizeBatch(context.Background(), sequencerActor(), batch.BatchID); !errors.Is(err, domain.ErrBatchRejected) {
		t.Fatalf("expected rejected batch to never finalize, got %v", err)
	}
	if _, err := f.svc.ResolveFraudProof(context.Background(), arbitratorActor(), proof.ProofID, true); !errors.Is(err, domain.ErrProofResolved) {
		t.Fatalf("expected resolved proof to stay resolved, got %v", err)
	}
}

func TestResolveFraudProofArbitratorOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.registerSequencer(t)
	f.submitDispute(t, 1)
	f.submitDispute(t, 2)
	f.submitDispute(t, 3)
	batch := f.commitBatch(t)

	proof, err := f.svc.ChallengeBatch(context.Background(), userActor(""), challengeInput(batch.BatchID))
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	if _, err := f.svc.ResolveFraudProof(context.Background(), userActor(""), proof.ProofID, true); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for user resolution, got %v", err)
	}
	if _, err := f.svc.ResolveFraudProof(context.Background(), application.Actor{}, proof.ProofID, true); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for empty subject, got %v", err)
	}
}

func TestFinalizeBatchWindow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.registerSequencer(t)
	f.submitDispute(t, 1)
	f.submitDispute(t, 2)
	f.submitDispute(t, 3)
	batch := f.commitBatch(t)

	if _, err := f.svc.FinalizeBatch(context.Background(), sequencerActor(), batch.BatchID); !errors.Is(err, domain.ErrChallengeWindowOpen) {
		t.Fatalf("expected open window error, got %v", err)
	}

	f.clock.Advance(7 * 24 * time.Hour)
	if _, err := f.svc.FinalizeBatch(context.Background(), sequencerActor(), batch.BatchID); err != nil {
		t.Fatalf("finalize at deadline: %v", err)
	}
	if _, err := f.svc.FinalizeBatch(context.Background(), sequencerActor(), batch.BatchID); !errors.Is(err, domain.ErrBatchFinalized) {
		t.Fatalf("expected already finalized error, got %v", err)
	}

	if _, err := f.svc.ChallengeBatch(context.Background(), userActor(""), challengeInput(batch.BatchID)); !errors.Is(err, domain.ErrBatchFinalized) {
		t.Fatalf("expected finalized batch to refuse challenges, got %v", err)
	}
}

func TestExitSequencerBlockedWhileBusy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.registerSequencer(t)
	f.submitDispute(t, 1)
	f.submitDispute(t, 2)
	f.submitDispute(t, 3)
	batch := f.commitBatch(t)

	if _, err := f.svc.ExitSequencer(context.Background(), sequencerActor()); !errors.Is(err, domain.ErrSequencerBusy) {
		t.Fatalf("expected busy sequencer to be refused, got %v", err)
	}

	f.clock.Advance(7 * 24 * time.Hour)
	if _, err := f.svc.FinalizeBatch(context.Background(), sequencerActor(), batch.BatchID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	exited, err := f.svc.ExitSequencer(context.Background(), sequencerActor())
	if err != nil {
		t.Fatalf("exit after finalization: %v", err)
	}
	if exited.Active || exited.BondAmount != 0 || exited.ExitedAt == nil {
		t.Fatalf("unexpected exit state: %+v", exited)
	}

	if _, err := f.svc.ExitSequencer(context.Background(), sequencerActor()); !errors.Is(err, domain.ErrSequencerInactive) {
		t.Fatalf("expected inactive after exit, got %v", err)
	}
}

func TestFlushOutboxRoutesEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.registerSequencer(t)
	f.submitDispute(t, 1)
	f.submitDispute(t, 2)
	f.submitDispute(t, 3)
	batch := f.commitBatch(t)

	if err := f.svc.FlushOutbox(context.Background()); err != nil {
		t.Fatalf("flush outbox: %v", err)
	}

	if len(f.anchor.received) != 1 || f.anchor.received[0] != batch.BatchID {
		t.Fatalf("expected one anchor receive for batch %d, got %+v", batch.BatchID, f.anchor.received)
	}
	var sawCommitted bool
	for _, event := range f.publisher.events {
		if event.EventType == domain.EventBatchCommitted && event.PartitionKey == "1" {
			sawCommitted = true
		}
	}
	if !sawCommitted {
		t.Fatalf("expected batch.committed published, got %+v", f.publisher.events)
	}

	// a second flush must be a no-op
	published := len(f.publisher.events)
	if err := f.svc.FlushOutbox(context.Background()); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if len(f.publisher.events) != published || len(f.anchor.received) != 1 {
		t.Fatalf("expected flushed records to stay published")
	}

	f.clock.Advance(7 * 24 * time.Hour)
	if _, err := f.svc.FinalizeBatch(context.Background(), sequencerActor(), batch.BatchID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := f.svc.FlushOutbox(context.Background()); err != nil {
		t.Fatalf("flush after finalize: %v", err)
	}
	if len(f.anchor.finalized) != 1 || f.anchor.finalized[0] != batch.BatchID {
		t.Fatalf("expected anchor finalize notification, got %+v", f.anchor.finalized)
	}
}

func TestHandleCanonicalEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	envelope := contracts.EventEnvelope{
		EventID:          "evt-1",
		EventType:        domain.EventBatchCommitted,
		EventClass:       domain.CanonicalEventClassDomain,
		OccurredAt:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PartitionKeyPath: "data.batch_id",
		PartitionKey:     "1",
		SourceService:    "M46-Dispute-Settlement-Service",
		TraceID:          "trace-1",
		SchemaVersion:    "v1",
		Data:             []byte(`{"batch_id":1}`),
	}
	if err := f.svc.HandleCanonicalEvent(context.Background(), envelope); err != nil {
		t.Fatalf("handle canonical event: %v", err)
	}

	envelope.EventType = "unknown.event"
	if err := f.svc.HandleCanonicalEvent(context.Background(), envelope); !errors.Is(err, domain.ErrUnsupportedEventType) {
		t.Fatalf("expected unsupported event type, got %v", err)
	}

	envelope.EventType = domain.EventBatchCommitted
	envelope.TraceID = ""
	if err := f.svc.HandleCanonicalEvent(context.Background(), envelope); !errors.Is(err, domain.ErrInvalidEnvelope) {
		t.Fatalf("expected invalid envelope, got %v", err)
	}
}

func TestIntakeEventCreatesDispute(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	data, err := json.Marshal(contracts.DisputeIntakeRequestedPayload{
		InitiatorRef:    "claimant-up",
		CounterpartyRef: "respondent-up",
		EvidenceRoot:    domain.HashBytes([]byte("upstream-evidence")).Hex(),
		Stake:           250,
		ValueAttached:   250,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope := contracts.EventEnvelope{
		EventID:       "intake-evt-1",
		EventType:     domain.EventDisputeIntakeRequested,
		EventClass:    domain.CanonicalEventClassDomain,
		OccurredAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PartitionKey:  "claimant-up",
		SourceService: "M13-payment-orchestrator",
		TraceID:       "trace-intake",
		SchemaVersion: "v1",
		Data:          data,
	}

	if err := f.svc.HandleCanonicalEvent(context.Background(), envelope); err != nil {
		t.Fatalf("handle intake event: %v", err)
	}
	dispute, err := f.svc.GetDispute(context.Background(), userActor(""), 1)
	if err != nil {
		t.Fatalf("get dispute: %v", err)
	}
	if dispute.InitiatorRef != "claimant-up" || dispute.Stake != 250 {
		t.Fatalf("unexpected dispute from intake event: %+v", dispute)
	}
	if dispute.Submitter != "M13-payment-orchestrator" {
		t.Fatalf("expected source service as submitter, got %q", dispute.Submitter)
	}

	// broker redelivery of the same event must not queue a second dispute
	if err := f.svc.HandleCanonicalEvent(context.Background(), envelope); err != nil {
		t.Fatalf("redelivered intake event: %v", err)
	}
	if _, err := f.svc.GetDispute(context.Background(), userActor(""), 2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected single dispute after redelivery, got %v", err)
	}

	bad := envelope
	bad.EventID = "intake-evt-2"
	bad.Data = []byte(`{"stake": "not a number"}`)
	if err := f.svc.HandleCanonicalEvent(context.Background(), bad); !errors.Is(err, domain.ErrInvalidEnvelope) {
		t.Fatalf("expected invalid envelope for malformed payload, got %v", err)
	}
}

func TestFlushOutboxDeadLettersAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.registerSequencer(t)
	f.submitDispute(t, 1)
	f.submitDispute(t, 2)
	f.submitDispute(t, 3)
	f.commitBatch(t)

	f.anchor.receiveErr = errors.New("anchor offline")
	for attempt := 1; attempt <= 4; attempt++ {
		if err := f.svc.FlushOutbox(context.Background()); err == nil {
			t.Fatalf("attempt %d: expected anchor failure to surface", attempt)
		}
	}

	// fifth failure exhausts the budget: the record parks on the
	// dead-letter channel and the flush moves past it
	if err := f.svc.FlushOutbox(context.Background()); err != nil {
		t.Fatalf("flush after budget exhausted: %v", err)
	}
	if len(f.anchor.received) != 0 {
		t.Fatalf("expected no anchor delivery, got %+v", f.anchor.received)
	}
	var sawDeadLetter, sawCommitted bool
	for _, event := range f.publisher.events {
		switch event.EventType {
		case domain.EventDeadLetter:
			sawDeadLetter = true
		case domain.EventBatchCommitted:
			sawCommitted = true
		}
	}
	if !sawDeadLetter {
		t.Fatalf("expected dead-letter publish, got %+v", f.publisher.events)
	}
	if !sawCommitted {
		t.Fatalf("expected flush to drain records behind the parked one, got %+v", f.publisher.events)
	}

	// the parked record stays parked
	published := len(f.publisher.events)
	if err := f.svc.FlushOutbox(context.Background()); err != nil {
		t.Fatalf("follow-up flush: %v", err)
	}
	if len(f.publisher.events) != published {
		t.Fatalf("expected no replay of parked record")
	}
}

type countingTx struct {
	calls int
}

func (c *countingTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	c.calls++
	return fn(ctx)
}

func TestMultiStoreMutationsRunInUnitOfWork(t *testing.T) {
	t.Parallel()
	tx := &countingTx{}
	f := newFixtureWithTx(t, tx)
	f.registerSequencer(t)
	f.submitDispute(t, 1)
	f.submitDispute(t, 2)
	f.submitDispute(t, 3)

	batch := f.commitBatch(t)
	if tx.calls != 1 {
		t.Fatalf("expected commit to run in one unit of work, got %d", tx.calls)
	}

	proof, err := f.svc.ChallengeBatch(context.Background(), userActor(""), challengeInput(batch.BatchID))
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	if _, err := f.svc.ResolveFraudProof(context.Background(), arbitratorActor(), proof.ProofID, false); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tx.calls != 2 {
		t.Fatalf("expected resolution to run in one unit of work, got %d", tx.calls)
	}

	f.clock.Advance(7 * 24 * time.Hour)
	if _, err := f.svc.FinalizeBatch(context.Background(), sequencerActor(), batch.BatchID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if tx.calls != 3 {
		t.Fatalf("expected finalization to run in one unit of work, got %d", tx.calls)
	}
}

type faultyDuplicateIndex struct {
	*memory.DisputeRepository
	checkErr error
}

func (r *faultyDuplicateIndex) GetOpenByDataHash(_ context.Context, _ domain.Hash) (domain.Dispute, error) {
	return domain.Dispute{}, r.checkErr
}

func TestSubmitDisputeSurfacesDuplicateCheckFailure(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	repos := memory.NewRepositories(clock.now)
	storeErr := errors.New("index scan failed")
	svc := application.NewService(application.Dependencies{
		Config:      application.Config{Params: domain.DefaultParams()},
		Disputes:    &faultyDuplicateIndex{DisputeRepository: repos.Disputes, checkErr: storeErr},
		Pending:     repos.Pending,
		Batches:     repos.Batches,
		Proofs:      repos.Proofs,
		Sequencers:  repos.Sequencers,
		ChainState:  repos.ChainState,
		Ledger:      repos.Ledger,
		Control:     repos.Control,
		Idempotency: repos.Idempotency,
		Outbox:      repos.Outbox,
		Events:      &capturePublisher{},
		Anchor:      &captureAnchor{},
	}).WithClock(clock.Now)

	_, err := svc.SubmitDispute(context.Background(), userActor("dup-check"), application.SubmitDisputeInput{
		InitiatorRef:    "claimant",
		CounterpartyRef: "respondent",
		Stake:           100,
		ValueAttached:   100,
	})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store failure to surface, got %v", err)
	}
	if errors.Is(err, domain.ErrConflict) {
		t.Fatalf("store failure must not masquerade as a duplicate")
	}
}

func TestGetChainHeadReportsTrigger(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	head, err := f.svc.GetChainHead(context.Background(), userActor(""))
	if err != nil {
		t.Fatalf("chain head: %v", err)
	}
	if head.CanSubmit || head.PendingSize != 0 || head.State.LastBatchID != 0 {
		t.Fatalf("unexpected genesis head: %+v", head)
	}

	f.submitDispute(t, 1)
	f.submitDispute(t, 2)
	f.submitDispute(t, 3)
	head, err = f.svc.GetChainHead(context.Background(), userActor(""))
	if err != nil {
		t.Fatalf("chain head: %v", err)
	}
	if !head.CanSubmit || head.PendingSize != 3 {
		t.Fatalf("expected submit trigger with full queue, got %+v", head)
	}
}

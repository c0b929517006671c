package domain

// Canonical event notes for M46:
// - domain class: dispute.submitted, batch.committed, batch.challenged, batch.rejected, batch.finalized
// - analytics_only: fraudproof.resolved
// - ops class carries anchor-layer notifications, delivered through the anchor client

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
	CanonicalEventClassOps           = "ops"
)

const (
	EventDisputeSubmitted   = "dispute.submitted"
	EventBatchCommitted     = "batch.committed"
	EventBatchChallenged    = "batch.challenged"
	EventBatchRejected      = "batch.rejected"
	EventBatchFinalized     = "batch.finalized"
	EventFraudProofResolved = "fraudproof.resolved"

	EventAnchorBatchReceived  = "anchor.batch_received"
	EventAnchorBatchFinalized = "anchor.batch_finalized"
)

// Consumed and operational channels. Intake requests arrive from upstream
// services and feed SubmitDispute; the dead-letter type names the channel
// where undeliverable or poisoned envelopes are parked.
const (
	EventDisputeIntakeRequested = "dispute.intake.requested"
	EventDeadLetter             = "settlement.dlq"
)

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventDisputeSubmitted, EventBatchCommitted, EventBatchChallenged, EventBatchRejected, EventBatchFinalized:
		return CanonicalEventClassDomain
	case EventFraudProofResolved:
		return CanonicalEventClassAnalyticsOnly
	case EventAnchorBatchReceived, EventAnchorBatchFinalized:
		return CanonicalEventClassOps
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	switch eventType {
	case EventDisputeSubmitted:
		return "data.dispute_id"
	case EventBatchCommitted, EventBatchChallenged, EventBatchRejected, EventBatchFinalized,
		EventAnchorBatchReceived, EventAnchorBatchFinalized:
		return "data.batch_id"
	case EventFraudProofResolved:
		return "data.proof_id"
	default:
		return ""
	}
}

func IsCanonicalEmittedEvent(eventType string) bool {
	return CanonicalEventClass(eventType) != ""
}

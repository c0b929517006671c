package domain

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrIdempotencyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict = errors.New("idempotency key reused with different payload")

	ErrIntakePaused      = errors.New("dispute intake is paused")
	ErrInsufficientStake = errors.New("attached value below declared stake")
	ErrInsufficientBond  = errors.New("attached bond below required minimum")

	ErrSequencerInactive = errors.New("caller is not an active sequencer")
	ErrSequencerBusy     = errors.New("sequencer has unresolved batches")

	ErrBatchNotReady         = errors.New("batch trigger conditions not met")
	ErrBatchChallenged       = errors.New("batch has unresolved challenges")
	ErrBatchFinalized        = errors.New("batch already finalized")
	ErrBatchRejected         = errors.New("batch rejected after confirmed fraud")
	ErrChallengeWindowClosed = errors.New("challenge period has elapsed")
	ErrChallengeWindowOpen   = errors.New("challenge period has not elapsed")
	ErrProofResolved         = errors.New("fraud proof already resolved")

	ErrInvalidStateTransition = errors.New("invalid dispute status transition")
	ErrBatchRefAssigned       = errors.New("dispute already assigned to a batch")

	ErrInvalidEnvelope       = errors.New("invalid event envelope")
	ErrUnsupportedEventType  = errors.New("unsupported event type")
	ErrUnsupportedEventClass = errors.New("unsupported event class")
)

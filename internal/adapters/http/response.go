package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, contracts.SuccessResponse{Status: "success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, contracts.ErrorResponse{Status: "error", Error: contracts.ErrorPayload{Code: code, Message: message, RequestID: requestID}})
}

func mapDomainError(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrIdempotencyRequired):
		return http.StatusBadRequest, "idempotency_key_required"
	case errors.Is(err, domain.ErrIdempotencyConflict), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrIntakePaused):
		return http.StatusServiceUnavailable, "intake_paused"
	case errors.Is(err, domain.ErrInsufficientStake):
		return http.StatusUnprocessableEntity, "insufficient_stake"
	case errors.Is(err, domain.ErrInsufficientBond):
		return http.StatusUnprocessableEntity, "insufficient_bond"
	case errors.Is(err, domain.ErrSequencerInactive):
		return http.StatusConflict, "sequencer_inactive"
	case errors.Is(err, domain.ErrSequencerBusy):
		return http.StatusConflict, "sequencer_busy"
	case errors.Is(err, domain.ErrBatchNotReady):
		return http.StatusConflict, "batch_not_ready"
	case errors.Is(err, domain.ErrBatchChallenged):
		return http.StatusConflict, "batch_challenged"
	case errors.Is(err, domain.ErrBatchFinalized):
		return http.StatusConflict, "batch_finalized"
	case errors.Is(err, domain.ErrBatchRejected):
		return http.StatusConflict, "batch_rejected"
	case errors.Is(err, domain.ErrChallengeWindowClosed):
		return http.StatusConflict, "challenge_window_closed"
	case errors.Is(err, domain.ErrChallengeWindowOpen):
		return http.StatusConflict, "challenge_window_open"
	case errors.Is(err, domain.ErrProofResolved):
		return http.StatusConflict, "proof_resolved"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return http.StatusConflict, "invalid_state_transition"
	case errors.Is(err, domain.ErrBatchRefAssigned):
		return http.StatusConflict, "batch_ref_assigned"
	case errors.Is(err, domain.ErrUnsupportedEventType):
		return http.StatusBadRequest, "unsupported_event"
	case errors.Is(err, domain.ErrUnsupportedEventClass), errors.Is(err, domain.ErrInvalidEnvelope):
		return http.StatusBadRequest, "invalid_event_envelope"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

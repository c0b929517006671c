package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
)

type Handler struct{ service *application.Service }

func NewHandler(service *application.Service) *Handler { return &Handler{service: service} }

func (h *Handler) submitDispute(w http.ResponseWriter, r *http.Request) {
	var req contracts.SubmitDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	evidenceRoot, err := parseOptionalHash(req.EvidenceRoot)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid evidence_root", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	dispute, err := h.service.SubmitDispute(r.Context(), actor, application.SubmitDisputeInput{
		InitiatorRef:    req.InitiatorRef,
		CounterpartyRef: req.CounterpartyRef,
		EvidenceRoot:    evidenceRoot,
		Stake:           req.Stake,
		ValueAttached:   req.ValueAttached,
	})
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "dispute submitted", toDisputeResponse(dispute))
}

func (h *Handler) submitDisputeBatch(w http.ResponseWriter, r *http.Request) {
	var req contracts.SubmitDisputeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	roots := make([]domain.Hash, 0, len(req.EvidenceRoots))
	for _, raw := range req.EvidenceRoots {
		root, err := parseOptionalHash(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "invalid evidence_roots entry", requestIDFromContext(r.Context()))
			return
		}
		roots = append(roots, root)
	}
	actor := actorFromContext(r.Context())
	disputes, err := h.service.SubmitDisputeBatch(r.Context(), actor, application.SubmitDisputeBatchInput{
		InitiatorRefs:    req.InitiatorRefs,
		CounterpartyRefs: req.CounterpartyRefs,
		EvidenceRoots:    roots,
		Stakes:           req.Stakes,
		ValueAttached:    req.ValueAttached,
	})
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	out := make([]contracts.DisputeResponse, 0, len(disputes))
	for _, d := range disputes {
		out = append(out, toDisputeResponse(d))
	}
	writeSuccess(w, http.StatusCreated, "disputes submitted", out)
}

func (h *Handler) getDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, err := pathID(r, "disputeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid dispute id", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	dispute, err := h.service.GetDispute(r.Context(), actor, disputeID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "dispute", toDisputeResponse(dispute))
}

func (h *Handler) registerSequencer(w http.ResponseWriter, r *http.Request) {
	var req contracts.RegisterSequencerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	seq, err := h.service.RegisterSequencer(r.Context(), actor, application.RegisterSequencerInput{Bond: req.Bond})
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "sequencer registered", toSequencerResponse(seq))
}

func (h *Handler) exitSequencer(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	seq, err := h.service.ExitSequencer(r.Context(), actor)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "sequencer exited", toSequencerResponse(seq))
}

func (h *Handler) listSequencers(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	seqs, err := h.service.ListSequencers(r.Context(), actor)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	out := make([]contracts.SequencerResponse, 0, len(seqs))
	for _, s := range seqs {
		out = append(out, toSequencerResponse(s))
	}
	writeSuccess(w, http.StatusOK, "active sequencers", out)
}

func (h *Handler) commitBatch(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	batch, err := h.service.CommitBatch(r.Context(), actor)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "batch committed", toBatchResponse(batch))
}

func (h *Handler) chainHead(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	head, err := h.service.GetChainHead(r.Context(), actor)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "chain head", contracts.ChainHeadResponse{
		LastBatchID:   head.State.LastBatchID,
		LastStateRoot: head.State.LastStateRoot.Hex(),
		LastBatchAt:   head.State.LastBatchAt.UTC().Format(time.RFC3339),
		PendingSize:   head.PendingSize,
		CanSubmit:     head.CanSubmit,
	})
}

func (h *Handler) getBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := pathID(r, "batchID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid batch id", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	batch, err := h.service.GetBatch(r.Context(), actor, batchID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "batch", toBatchResponse(batch))
}

func (h *Handler) challengeBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := pathID(r, "batchID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid batch id", requestIDFromContext(r.Context()))
		return
	}
	var req contracts.ChallengeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	claimedRoot, err := domain.HashFromHex(strings.TrimSpace(req.ClaimedRoot))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid claimed_root", requestIDFromContext(r.Context()))
		return
	}
	path := make([]domain.Hash, 0, len(req.ProofPath))
	for _, raw := range req.ProofPath {
		node, err := domain.HashFromHex(strings.TrimSpace(raw))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "invalid proof_path entry", requestIDFromContext(r.Context()))
			return
		}
		path = append(path, node)
	}
	var evidence []byte
	if req.Evidence != "" {
		evidence, err = base64.StdEncoding.DecodeString(req.Evidence)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "invalid evidence encoding", requestIDFromContext(r.Context()))
			return
		}
	}
	actor := actorFromContext(r.Context())
	proof, err := h.service.ChallengeBatch(r.Context(), actor, application.ChallengeBatchInput{
		BatchID:      batchID,
		DisputeID:    req.DisputeID,
		ClaimedRoot:  claimedRoot,
		ProofPath:    path,
		Evidence:     evidence,
		BondAttached: req.BondAttached,
	})
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "challenge filed", toFraudProofResponse(proof))
}

func (h *Handler) getFraudProof(w http.ResponseWriter, r *http.Request) {
	proofID, err := pathID(r, "proofID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid proof id", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	proof, err := h.service.GetFraudProof(r.Context(), actor, proofID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "fraud proof", toFraudProofResponse(proof))
}

func (h *Handler) resolveFraudProof(w http.ResponseWriter, r *http.Request) {
	proofID, err := pathID(r, "proofID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid proof id", requestIDFromContext(r.Context()))
		return
	}
	var req contracts.ResolveFraudProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	proof, err := h.service.ResolveFraudProof(r.Context(), actor, proofID, req.Confirmed)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "fraud proof resolved", toFraudProofResponse(proof))
}

func (h *Handler) finalizeBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := pathID(r, "batchID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid batch id", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	batch, err := h.service.FinalizeBatch(r.Context(), actor, batchID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "batch finalized", toBatchResponse(batch))
}

func (h *Handler) ledgerEntries(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	account := strings.TrimSpace(r.URL.Query().Get("account"))
	entries, err := h.service.ListLedgerEntries(r.Context(), actor, account)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	out := make([]contracts.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, contracts.LedgerEntryResponse{
			EntryID:    e.EntryID,
			Account:    e.Account,
			EntryType:  e.EntryType,
			Amount:     e.Amount,
			EntityKind: e.EntityKind,
			EntityID:   e.EntityID,
			OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339),
		})
	}
	writeSuccess(w, http.StatusOK, "ledger entries", out)
}

func (h *Handler) pauseIntake(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if err := h.service.PauseIntake(r.Context(), actor); err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "intake paused", nil)
}

func (h *Handler) resumeIntake(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if err := h.service.ResumeIntake(r.Context(), actor); err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "intake resumed", nil)
}

func pathID(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
}

// parseOptionalHash accepts an empty string as the zero hash; disputes are
// allowed to carry no off-chain evidence.
func parseOptionalHash(raw string) (domain.Hash, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.ZeroHash, nil
	}
	return domain.HashFromHex(trimmed)
}

func toDisputeResponse(d domain.Dispute) contracts.DisputeResponse {
	return contracts.DisputeResponse{
		DisputeID:       d.DisputeID,
		InitiatorRef:    d.InitiatorRef,
		CounterpartyRef: d.CounterpartyRef,
		EvidenceRoot:    d.EvidenceRoot.Hex(),
		DataHash:        d.DataHash.Hex(),
		Stake:           d.Stake,
		Status:          d.Status,
		BatchID:         d.BatchID,
		SubmittedAt:     d.SubmittedAt.UTC().Format(time.RFC3339),
	}
}

func toSequencerResponse(s domain.Sequencer) contracts.SequencerResponse {
	return contracts.SequencerResponse{
		SequencerID:  s.SequencerID,
		BondAmount:   s.BondAmount,
		Active:       s.Active,
		Primary:      s.Primary,
		RegisteredAt: s.RegisteredAt.UTC().Format(time.RFC3339),
	}
}

func toBatchResponse(b domain.Batch) contracts.BatchResponse {
	resp := contracts.BatchResponse{
		BatchID:        b.BatchID,
		StateRoot:      b.StateRoot.Hex(),
		DisputeRoot:    b.DisputeRoot.Hex(),
		Count:          b.Count,
		FirstDisputeID: b.FirstDisputeID,
		LastDisputeID:  b.LastDisputeID,
		Submitter:      b.Submitter,
		Status:         b.Status(),
		Challenged:     b.Challenged,
		Finalized:      b.Finalized,
		SubmittedAt:    b.SubmittedAt.UTC().Format(time.RFC3339),
	}
	if b.FinalizedAt != nil {
		resp.FinalizedAt = b.FinalizedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toFraudProofResponse(p domain.FraudProof) contracts.FraudProofResponse {
	return contracts.FraudProofResponse{
		ProofID:     p.ProofID,
		BatchID:     p.BatchID,
		DisputeID:   p.DisputeID,
		ClaimedRoot: p.ClaimedRoot.Hex(),
		Challenger:  p.Challenger,
		Bond:        p.Bond,
		Resolved:    p.Resolved,
		Confirmed:   p.Confirmed,
		FiledAt:     p.FiledAt.UTC().Format(time.RFC3339),
	}
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/adapters/security"
)

func NewRouter(handler *Handler, verifier *security.JWTVerifier) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })
	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(verifier))

			r.Post("/disputes", handler.submitDispute)
			r.Post("/disputes/batch", handler.submitDisputeBatch)
			r.Get("/disputes/{disputeID}", handler.getDispute)

			r.Post("/sequencers", handler.registerSequencer)
			r.Post("/sequencers/exit", handler.exitSequencer)
			r.Get("/sequencers", handler.listSequencers)

			r.Post("/batches", handler.commitBatch)
			r.Get("/batches/head", handler.chainHead)
			r.Get("/batches/{batchID}", handler.getBatch)
			r.Post("/batches/{batchID}/challenges", handler.challengeBatch)
			r.Post("/batches/{batchID}/finalize", handler.finalizeBatch)

			r.Get("/challenges/{proofID}", handler.getFraudProof)
			r.Post("/challenges/{proofID}/resolve", handler.resolveFraudProof)

			r.Get("/ledger/entries", handler.ledgerEntries)

			r.Post("/admin/intake/pause", handler.pauseIntake)
			r.Post("/admin/intake/resume", handler.resumeIntake)
		})
	})
	return r
}

package ports

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
)

// AnchorClient is the narrow outbound interface to the anchor layer. Both
// calls are fire-and-acknowledge notifications; delivery retries are the
// outbox worker's job.
type AnchorClient interface {
	ReceiveBatch(ctx context.Context, batchID uint64, stateRoot, disputeRoot domain.Hash, count int) error
	FinalizeBatch(ctx context.Context, batchID uint64, stateRoot domain.Hash) error
}

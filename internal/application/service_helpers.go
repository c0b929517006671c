package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
)

func hashJSON(v any) string {
	b, _ := json.Marshal(v)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func getIdempotent[T any](ctx context.Context, s *Service, key, requestHash string) (T, bool, error) {
	var zero T
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return zero, false, nil
	}
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil || rec == nil {
		return zero, false, err
	}
	if rec.RequestHash != requestHash {
		return zero, false, domain.ErrIdempotencyConflict
	}
	if len(rec.ResponseBody) == 0 {
		return zero, false, nil
	}
	var out T
	if err := json.Unmarshal(rec.ResponseBody, &out); err != nil {
		return zero, false, nil
	}
	return out, true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) error {
	if s.idempotency == nil {
		return nil
	}
	err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL))
	if err == domain.ErrConflict {
		return domain.ErrIdempotencyConflict
	}
	return err
}

func (s *Service) completeIdempotencyJSON(ctx context.Context, key string, code int, payload any) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	b, _ := json.Marshal(payload)
	return s.idempotency.Complete(ctx, key, code, b, s.nowFn())
}

func (s *Service) requireIdempotencyKey(actor Actor) error {
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return domain.ErrIdempotencyRequired
	}
	return nil
}

package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisEventDedupStore tracks processed consumer event IDs with a TTL, so
// redelivered canonical events are dropped instead of reprocessed.
type RedisEventDedupStore struct {
	client *redis.Client
	nowFn  func() time.Time
}

func NewRedisEventDedupStore(client *redis.Client) *RedisEventDedupStore {
	return &RedisEventDedupStore{client: client, nowFn: func() time.Time { return time.Now().UTC() }}
}

func (s *RedisEventDedupStore) IsDuplicate(ctx context.Context, eventID string, _ time.Time) (bool, error) {
	n, err := s.client.Exists(ctx, dedupKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisEventDedupStore) MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.nowFn())
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, dedupKey(eventID), eventType, ttl).Err()
}

func dedupKey(eventID string) string {
	return "settlement:dedup:" + eventID
}

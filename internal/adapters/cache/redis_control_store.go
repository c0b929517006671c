package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const intakePausedKey = "settlement:control:intake_paused"

// RedisControlStore keeps the administrative intake switch in Redis so the
// pause takes effect across every api and worker replica at once.
type RedisControlStore struct {
	client *redis.Client
}

func NewRedisControlStore(client *redis.Client) *RedisControlStore {
	return &RedisControlStore{client: client}
}

func (s *RedisControlStore) IntakePaused(ctx context.Context) (bool, error) {
	val, err := s.client.Get(ctx, intakePausedKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return val == "1", nil
}

func (s *RedisControlStore) SetIntakePaused(ctx context.Context, paused bool) error {
	val := "0"
	if paused {
		val = "1"
	}
	return s.client.Set(ctx, intakePausedKey, val, 0).Err()
}

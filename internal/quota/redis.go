package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const counterKeyPrefix = "quota:"

// RedisCounterStore implements CounterStore on Redis. INCR is atomic on the
// server, which is what makes increment-then-compare safe across processes.
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore wraps an existing client.
func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

// Increment atomically bumps the credential's counter and refreshes its
// expiry to a full window from now (the window slides on every request).
func (s *RedisCounterStore) Increment(ctx context.Context, credential string, window time.Duration) (int64, error) {
	key := counterKeyPrefix + credential
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.PExpire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr pipeline: %w", err)
	}
	return incr.Val(), nil
}

// Decrement compensates an increment that overran the ceiling.
func (s *RedisCounterStore) Decrement(ctx context.Context, credential string) error {
	if err := s.client.Decr(ctx, counterKeyPrefix+credential).Err(); err != nil {
		return fmt.Errorf("redis decr: %w", err)
	}
	return nil
}

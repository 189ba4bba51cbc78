package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProvider implements Provider on a Redis client.
type RedisProvider struct {
	client *redis.Client
}

// NewRedisProvider wraps an existing client.
func NewRedisProvider(client *redis.Client) *RedisProvider {
	return &RedisProvider{client: client}
}

// Dial connects to Redis and verifies the connection with a ping. Callers
// that want fail-open behavior treat a dial error as "run without cache".
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Get fetches a payload; a redis.Nil reply is an ordinary miss.
func (p *RedisProvider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := p.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return payload, true, nil
}

// SetWithTTL stores the payload with expiry.
func (p *RedisProvider) SetWithTTL(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := p.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

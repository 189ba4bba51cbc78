// Package cache implements the tier-partitioned cache-aside read path.
//
// The cache is strictly an optimization: a nil provider, a backend error, or
// a marshal failure all degrade to computing the authoritative value
// directly. The serving path never fails because the cache is down.
package cache

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/metrics"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/plan"
)

// Provider is the narrow capability the layer needs from a cache backend.
type Provider interface {
	// Get returns the payload for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// SetWithTTL stores payload against key for the given TTL.
	SetWithTTL(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// Layer performs read-through caching over an optional Provider.
type Layer struct {
	provider Provider
	logger   *zap.Logger
}

// NewLayer builds a Layer. A nil provider is a valid configuration: every
// read computes directly.
func NewLayer(provider Provider, logger *zap.Logger) *Layer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Layer{provider: provider, logger: logger}
}

// Key derives a cache key from a route identifier, the query signature, and
// the plan tier. The tier is always part of the key: payload shape differs
// by tier, and entries for different tiers on the same logical query must
// never collide. Query parts are joined verbatim: case folding is the
// caller's decision, and only valid for a part whose backing query is itself
// case-insensitive. Folding an opaque identifier here would collapse ids the
// store treats as distinct onto one entry.
func Key(route string, tier plan.Tier, queryParts ...string) string {
	return route + ":" + strings.Join(queryParts, ",") + ":" + string(tier)
}

// Read returns the cached payload if present, otherwise invokes compute,
// stores its result under key with the given TTL, and returns it. Provider
// errors are absorbed: the read falls back to compute and still succeeds.
// A compute error is never cached.
func (l *Layer) Read(
	ctx context.Context,
	key string,
	ttl time.Duration,
	compute func(context.Context) ([]byte, error),
) ([]byte, error) {
	if l.provider != nil {
		payload, ok, err := l.provider.Get(ctx, key)
		if err != nil {
			metrics.ObserveCacheEvent("error")
			l.logger.Warn("cache get failed, computing directly", zap.String("key", key), zap.Error(err))
		} else if ok {
			metrics.ObserveCacheEvent("hit")
			return payload, nil
		} else {
			metrics.ObserveCacheEvent("miss")
		}
	}

	payload, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if l.provider != nil {
		if err := l.provider.SetWithTTL(ctx, key, payload, ttl); err != nil {
			metrics.ObserveCacheEvent("error")
			l.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return payload, nil
}

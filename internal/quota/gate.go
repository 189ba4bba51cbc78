// Package quota admits or rejects requests against per-credential rolling
// usage counters.
package quota

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/metrics"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/plan"
)

// DefaultWindow is the rolling quota window. Every admitted request refreshes
// the window expiry, so the window slides and never lapses under continuous
// traffic. Kept from the original product behavior pending clarification; a
// fixed calendar reset would be a product-visible change.
const DefaultWindow = 30 * 24 * time.Hour

// CounterStore is the per-credential usage counter. Increment must be atomic
// with respect to concurrent calls for the same credential and must refresh
// the window expiry; Decrement compensates an increment that overran the
// ceiling.
type CounterStore interface {
	Increment(ctx context.Context, credential string, window time.Duration) (int64, error)
	Decrement(ctx context.Context, credential string) error
}

// Gate resolves credentials to tiers and enforces tier ceilings.
type Gate struct {
	resolver *plan.Resolver
	counters CounterStore
	window   time.Duration
	logger   *zap.Logger
}

// NewGate constructs a Gate. A zero window defaults to DefaultWindow.
func NewGate(resolver *plan.Resolver, counters CounterStore, window time.Duration, logger *zap.Logger) *Gate {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		resolver: resolver,
		counters: counters,
		window:   window,
		logger:   logger,
	}
}

// Admit resolves the credential's tier and charges one request against its
// ceiling. The charge is increment-then-compare on the counter store's atomic
// increment: if the post-increment count exceeds the ceiling, the increment
// is compensated and the request rejected. Concurrent requests can therefore
// never jointly overrun the ceiling. An unrecognized credential is rejected
// before any counter is touched.
func (g *Gate) Admit(ctx context.Context, credential string) (plan.Tier, error) {
	tier, err := g.resolver.Resolve(credential)
	if err != nil {
		return "", err
	}

	count, err := g.counters.Increment(ctx, credential, g.window)
	if err != nil {
		return "", fmt.Errorf("increment quota counter: %w", err)
	}
	if ceiling := tier.Ceiling(); count > ceiling {
		if derr := g.counters.Decrement(ctx, credential); derr != nil {
			g.logger.Warn("quota decrement compensation failed",
				zap.String("tier", string(tier)), zap.Error(derr))
		}
		metrics.ObserveQuotaRejection(string(tier))
		return tier, &catalog.QuotaExceededError{Credential: credential, Ceiling: ceiling}
	}
	return tier, nil
}

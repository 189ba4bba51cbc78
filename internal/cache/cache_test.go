package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/plan"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingProvider struct{}

func (failingProvider) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}

func (failingProvider) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}

func TestKeyPartitionsByTier(t *testing.T) {
	t.Parallel()

	basic := Key("records:list", plan.TierBasic)
	mega := Key("records:list", plan.TierMega)
	assert.NotEqual(t, basic, mega)
	assert.Equal(t, "records:list::BASIC", basic)

	ranged := Key("records:price-range", plan.TierPro, "1000", "2000")
	assert.Equal(t, "records:price-range:1000,2000:PRO", ranged)
}

func TestKeyPreservesQueryPartCase(t *testing.T) {
	t.Parallel()

	// Record ids are opaque and case-sensitive at the store; two ids that
	// differ only in case must never share a cache entry.
	assert.NotEqual(t,
		Key("records:detail", plan.TierPro, "REC-0001"),
		Key("records:detail", plan.TierPro, "rec-0001"),
	)
	assert.Equal(t, "records:detail:REC-0001:PRO",
		Key("records:detail", plan.TierPro, "REC-0001"))
}

func TestReadCachesUntilTTLExpiry(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Unix(1700000000, 0).UTC()}
	layer := NewLayer(NewMemoryProvider(clock), zap.NewNop())
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) ([]byte, error) {
		calls++
		if calls == 1 {
			return []byte(`{"price":100}`), nil
		}
		return []byte(`{"price":150}`), nil
	}

	got, err := layer.Read(ctx, "k", 60*time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, `{"price":100}`, string(got))

	// The authoritative value changed, but the entry is unexpired: the read
	// keeps serving the stale payload.
	got, err = layer.Read(ctx, "k", 60*time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, `{"price":100}`, string(got))
	assert.Equal(t, 1, calls)

	clock.Advance(61 * time.Second)
	got, err = layer.Read(ctx, "k", 60*time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, `{"price":150}`, string(got))
	assert.Equal(t, 2, calls)
}

func TestReadFailsOpenOnProviderError(t *testing.T) {
	t.Parallel()

	layer := NewLayer(failingProvider{}, zap.NewNop())
	got, err := layer.Read(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))
}

func TestReadWithoutProviderComputesDirectly(t *testing.T) {
	t.Parallel()

	layer := NewLayer(nil, zap.NewNop())
	calls := 0
	for i := 0; i < 3; i++ {
		got, err := layer.Read(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
			calls++
			return []byte("fresh"), nil
		})
		require.NoError(t, err)
		assert.Equal(t, "fresh", string(got))
	}
	assert.Equal(t, 3, calls)
}

func TestReadDoesNotCacheComputeErrors(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Unix(1700000000, 0).UTC()}
	provider := NewMemoryProvider(clock)
	layer := NewLayer(provider, zap.NewNop())
	ctx := context.Background()

	_, err := layer.Read(ctx, "k", time.Minute, func(context.Context) ([]byte, error) {
		return nil, errors.New("store down")
	})
	require.Error(t, err)

	_, ok, err := provider.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

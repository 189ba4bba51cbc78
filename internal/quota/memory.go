package quota

import (
	"context"
	"sync"
	"time"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
)

type counter struct {
	count  int64
	expiry time.Time
}

// MemoryCounterStore implements CounterStore with a mutex-guarded map. The
// single lock makes increment-and-refresh atomic, matching the Redis
// implementation's guarantee for a single process.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]counter
	clock    catalog.Clock
}

// NewMemoryCounterStore constructs a MemoryCounterStore.
func NewMemoryCounterStore(clock catalog.Clock) *MemoryCounterStore {
	return &MemoryCounterStore{
		counters: make(map[string]counter),
		clock:    clock,
	}
}

// Increment bumps the credential's counter, starting a fresh count when the
// previous window has lapsed, and slides the expiry a full window out.
func (s *MemoryCounterStore) Increment(_ context.Context, credential string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	c := s.counters[credential]
	if !c.expiry.IsZero() && now.After(c.expiry) {
		c.count = 0
	}
	c.count++
	c.expiry = now.Add(window)
	s.counters[credential] = c
	return c.count, nil
}

// Decrement compensates an increment that overran the ceiling.
func (s *MemoryCounterStore) Decrement(_ context.Context, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[credential]
	if !ok || c.count == 0 {
		return nil
	}
	c.count--
	s.counters[credential] = c
	return nil
}

// Count reports the current count for a credential (test helper).
func (s *MemoryCounterStore) Count(credential string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[credential].count
}

// Tracked reports whether any counter exists for the credential (test helper).
func (s *MemoryCounterStore) Tracked(credential string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.counters[credential]
	return ok
}

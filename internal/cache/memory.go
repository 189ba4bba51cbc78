package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
)

type memoryEntry struct {
	payload []byte
	expiry  time.Time
}

// MemoryProvider implements Provider with a mutex-guarded map. Used for
// development and tests when no Redis is configured.
type MemoryProvider struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   catalog.Clock
}

// NewMemoryProvider constructs a MemoryProvider.
func NewMemoryProvider(clock catalog.Clock) *MemoryProvider {
	return &MemoryProvider{
		entries: make(map[string]memoryEntry),
		clock:   clock,
	}
}

// Get returns an unexpired payload. Expired entries are dropped lazily.
func (p *MemoryProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	entry, ok := p.entries[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if p.clock.Now().After(entry.expiry) {
		p.mu.Lock()
		delete(p.entries, key)
		p.mu.Unlock()
		return nil, false, nil
	}
	return entry.payload, true, nil
}

// SetWithTTL stores the payload with expiry.
func (p *MemoryProvider) SetWithTTL(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = memoryEntry{
		payload: append([]byte(nil), payload...),
		expiry:  p.clock.Now().Add(ttl),
	}
	return nil
}

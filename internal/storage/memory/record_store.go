// Package memory provides in-memory implementations for development/testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
)

// RecordStore implements catalog.RecordStore with a mutex-guarded map keyed
// by natural key. The map operations under the single lock give the same
// atomic insert-or-update guarantee the Postgres store gets from ON CONFLICT.
type RecordStore struct {
	mu      sync.RWMutex
	byKey   map[string]catalog.Record
	idGen   catalog.IDGenerator
	clock   catalog.Clock
	inserts int64
}

// NewRecordStore constructs a RecordStore.
func NewRecordStore(idGen catalog.IDGenerator, clock catalog.Clock) *RecordStore {
	return &RecordStore{
		byKey: make(map[string]catalog.Record),
		idGen: idGen,
		clock: clock,
	}
}

// Upsert inserts a new record or overwrites the mutable fields of the
// existing one, preserving ID and CreatedAt.
func (s *RecordStore) Upsert(_ context.Context, draft catalog.Draft) (catalog.Record, error) {
	draft, err := draft.Normalize()
	if err != nil {
		return catalog.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	rec, exists := s.byKey[draft.NaturalKey]
	if !exists {
		id, err := s.idGen.NewID()
		if err != nil {
			return catalog.Record{}, fmt.Errorf("generate record id: %w", err)
		}
		s.inserts++
		rec = catalog.Record{ID: id, NaturalKey: draft.NaturalKey, CreatedAt: now}
	}
	rec.Title = draft.Title
	rec.DisplayPrice = draft.DisplayPrice
	rec.NumericPrice = catalog.NumericPrice(draft.DisplayPrice)
	rec.ImageURL = draft.ImageURL
	rec.Category = draft.Category
	rec.SourcePage = draft.SourcePage
	rec.UpdatedAt = now
	s.byKey[draft.NaturalKey] = rec
	return rec, nil
}

// FindByID fetches a record by its opaque identifier.
func (s *RecordStore) FindByID(_ context.Context, id string) (catalog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.byKey {
		if rec.ID == id {
			return rec, nil
		}
	}
	return catalog.Record{}, catalog.ErrNotFound
}

// FindByText matches titles case-insensitively, most recent first.
func (s *RecordStore) FindByText(_ context.Context, query string, limit int) ([]catalog.Record, error) {
	needle := strings.ToLower(query)
	return s.filter(limit, func(rec catalog.Record) bool {
		return strings.Contains(strings.ToLower(rec.Title), needle)
	}), nil
}

// FindByPriceRange returns records with numeric price in [min, max].
func (s *RecordStore) FindByPriceRange(_ context.Context, min, max int64, limit int) ([]catalog.Record, error) {
	return s.filter(limit, func(rec catalog.Record) bool {
		return rec.NumericPrice >= min && rec.NumericPrice <= max
	}), nil
}

// ListRecent returns the most recently created records.
func (s *RecordStore) ListRecent(_ context.Context, limit int) ([]catalog.Record, error) {
	return s.filter(limit, func(catalog.Record) bool { return true }), nil
}

// ListDistinctCategories enumerates categories excluding the sentinel.
func (s *RecordStore) ListDistinctCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, rec := range s.byKey {
		if rec.Category == catalog.CategoryUncategorized {
			continue
		}
		seen[rec.Category] = struct{}{}
	}
	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories, nil
}

// Len reports the number of stored records (test helper).
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

func (s *RecordStore) filter(limit int, keep func(catalog.Record) bool) []catalog.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.Record
	for _, rec := range s.byKey {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		// UUIDv7 IDs are time-ordered; break created_at ties on them.
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

package catalog

import (
	"context"
	"time"
)

// RecordStore persists canonical records keyed by natural key.
type RecordStore interface {
	// Upsert inserts the draft as a new record or updates the record with the
	// same natural key in place. The insert-or-update decision and the
	// preservation of ID/CreatedAt are a single atomic operation at the
	// store; callers never check existence first.
	Upsert(ctx context.Context, draft Draft) (Record, error)

	FindByID(ctx context.Context, id string) (Record, error)
	FindByText(ctx context.Context, query string, limit int) ([]Record, error)
	FindByPriceRange(ctx context.Context, min, max int64, limit int) ([]Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)

	// ListDistinctCategories enumerates categories, excluding the
	// Uncategorized sentinel.
	ListDistinctCategories(ctx context.Context) ([]string, error)
}

// BlobStore writes raw artifacts (run snapshots) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

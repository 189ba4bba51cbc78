// Package harvest drives ingestion runs: it visits a bounded set of listing
// targets, extracts draft records from each page, and upserts them into the
// canonical store. A single target failure is never fatal to a run.
package harvest

import (
	"context"
	"time"
)

// Target is one listing page to harvest. Render selects the headless
// renderer for pages that only materialize their product grid via
// JavaScript; otherwise the static fetcher is used.
type Target struct {
	URL    string `mapstructure:"url" json:"url"`
	Render bool   `mapstructure:"render" json:"render"`
}

// Fetcher retrieves the HTML body of a target.
type Fetcher interface {
	Fetch(ctx context.Context, target Target) ([]byte, error)
}

// Summary reports what a run did. Records holds every record the run wrote,
// in write order, for snapshotting.
type Summary struct {
	Started         time.Time `json:"started_at"`
	Finished        time.Time `json:"finished_at"`
	TargetsVisited  int       `json:"targets_visited"`
	TargetsFailed   int       `json:"targets_failed"`
	DraftsExtracted int       `json:"drafts_extracted"`
	DraftsDiscarded int       `json:"drafts_discarded"`
	UpsertFailures  int       `json:"upsert_failures"`

	Records []RecordRef `json:"records"`
}

// RecordRef identifies one record written during a run.
type RecordRef struct {
	ID         string `json:"id"`
	NaturalKey string `json:"natural_key"`
	Title      string `json:"title"`
}

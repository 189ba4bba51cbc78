// Package catalog defines core types shared across subsystems.
package catalog

import (
	"strings"
	"time"
)

// CategoryUncategorized is the sentinel assigned when a draft carries no
// category. It is excluded from category enumeration.
const CategoryUncategorized = "Uncategorized"

// Record is the canonical product document. NaturalKey (the scraped product
// URL) uniquely identifies a record; ID and CreatedAt are assigned at first
// insert and never change afterwards.
type Record struct {
	ID           string    `json:"id"`
	NaturalKey   string    `json:"natural_key"`
	Title        string    `json:"title"`
	DisplayPrice string    `json:"display_price"`
	NumericPrice int64     `json:"numeric_price"`
	ImageURL     string    `json:"image_url"`
	Category     string    `json:"category"`
	SourcePage   string    `json:"source_page"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Draft is a harvested record before it has been persisted. Mutable fields
// overwrite the stored record on upsert; identity fields never do.
type Draft struct {
	NaturalKey   string `json:"natural_key"`
	Title        string `json:"title"`
	DisplayPrice string `json:"display_price"`
	ImageURL     string `json:"image_url"`
	Category     string `json:"category"`
	SourcePage   string `json:"source_page"`
}

// Normalize trims the draft, fills the category sentinel, and validates the
// fields a draft must carry before it may reach a store.
func (d Draft) Normalize() (Draft, error) {
	d.NaturalKey = strings.TrimSpace(d.NaturalKey)
	d.Title = strings.TrimSpace(d.Title)
	d.DisplayPrice = strings.TrimSpace(d.DisplayPrice)
	d.ImageURL = strings.TrimSpace(d.ImageURL)
	d.Category = strings.TrimSpace(d.Category)
	d.SourcePage = strings.TrimSpace(d.SourcePage)
	if d.Category == "" {
		d.Category = CategoryUncategorized
	}
	if d.NaturalKey == "" {
		return Draft{}, &ValidationError{Field: "natural_key", Reason: "must not be empty"}
	}
	if d.Title == "" {
		return Draft{}, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return d, nil
}

// NumericPrice derives an integer price from a scraped display price by
// keeping only its ASCII digits. "1,299 MAD" becomes 1299; an unparsable
// string such as "free" yields 0. Non-ASCII digit runes are skipped rather
// than misvalued by the rune arithmetic.
func NumericPrice(display string) int64 {
	var n int64
	seen := false
	for _, r := range display {
		if r < '0' || r > '9' {
			continue
		}
		seen = true
		n = n*10 + int64(r-'0')
	}
	if !seen {
		return 0
	}
	return n
}

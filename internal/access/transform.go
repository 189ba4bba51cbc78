// Package access maps canonical records to the tier-appropriate public
// projection. Projection is a pure function: it has no side effects and is
// total over all records and tiers.
package access

import (
	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/plan"
)

// View is the public shape of a record. Fields beyond ID and Title are
// populated only when the tier's entitlements expose them; omitted fields are
// absent from the serialized payload entirely, so Basic responses never carry
// pricing keys at all.
type View struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	DisplayPrice string `json:"display_price,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	URL          string `json:"url,omitempty"`
	Category     string `json:"category,omitempty"`
	SourcePage   string `json:"source_page,omitempty"`
}

// Project builds the tier view of a record. Field visibility comes from the
// plan entitlements table; an unknown tier falls back to the Basic view there.
func Project(rec catalog.Record, tier plan.Tier) View {
	v := View{
		ID:    rec.ID,
		Title: rec.Title,
	}
	ent := tier.Entitlements()
	if ent.Pricing {
		v.DisplayPrice = rec.DisplayPrice
		v.ImageURL = rec.ImageURL
		v.URL = rec.NaturalKey
		v.Category = rec.Category
	}
	if ent.SourcePage {
		v.SourcePage = rec.SourcePage
	}
	return v
}

// ProjectAll projects a slice of records.
func ProjectAll(recs []catalog.Record, tier plan.Tier) []View {
	views := make([]View, len(recs))
	for i, rec := range recs {
		views[i] = Project(rec, tier)
	}
	return views
}

// Package plan defines the closed set of subscription tiers and the single
// authoritative table of what each tier is entitled to: its request ceiling
// over the rolling quota window, its list-size limit, and which record fields
// its responses expose.
package plan

import (
	"strings"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
)

// Tier is a caller's subscription level.
type Tier string

// Known tiers, lowest privilege first.
const (
	TierBasic Tier = "BASIC"
	TierPro   Tier = "PRO"
	TierUltra Tier = "ULTRA"
	TierMega  Tier = "MEGA"
)

// Entitlements groups everything a tier grants.
type Entitlements struct {
	// Ceiling is the maximum admitted requests per rolling window.
	Ceiling int64
	// ListLimit caps list/search/range result sizes.
	ListLimit int
	// Pricing exposes display price, image, product URL and category.
	Pricing bool
	// SourcePage additionally exposes the page the record was harvested from.
	SourcePage bool
}

var table = map[Tier]Entitlements{
	TierBasic: {Ceiling: 500, ListLimit: 20},
	TierPro:   {Ceiling: 5000, ListLimit: 50, Pricing: true},
	TierUltra: {Ceiling: 30000, ListLimit: 100, Pricing: true},
	TierMega:  {Ceiling: 100000, ListLimit: 100, Pricing: true, SourcePage: true},
}

// Known reports whether t is one of the defined tiers.
func (t Tier) Known() bool {
	_, ok := table[t]
	return ok
}

// Entitlements returns the tier's grants. An unknown tier degrades to the
// Basic entitlements; credential resolution has already rejected unknown
// callers, so this only guards future tier additions.
func (t Tier) Entitlements() Entitlements {
	if e, ok := table[t]; ok {
		return e
	}
	return table[TierBasic]
}

// Ceiling is shorthand for Entitlements().Ceiling.
func (t Tier) Ceiling() int64 { return t.Entitlements().Ceiling }

// ListLimit is shorthand for Entitlements().ListLimit.
func (t Tier) ListLimit() int { return t.Entitlements().ListLimit }

// Resolver maps static API credentials to tiers.
type Resolver struct {
	credentials map[string]Tier
}

// NewResolver builds a Resolver from a credential to tier-name mapping.
// Entries naming an unknown tier are dropped.
func NewResolver(credentials map[string]string) *Resolver {
	m := make(map[string]Tier, len(credentials))
	for cred, name := range credentials {
		tier := Tier(strings.ToUpper(strings.TrimSpace(name)))
		if cred == "" || !tier.Known() {
			continue
		}
		m[cred] = tier
	}
	return &Resolver{credentials: m}
}

// Resolve returns the tier for a credential. Missing and unrecognized
// credentials are distinct failures: the former never reached configuration,
// the latter is an active rejection.
func (r *Resolver) Resolve(credential string) (Tier, error) {
	if credential == "" {
		return "", catalog.ErrMissingCredential
	}
	tier, ok := r.credentials[credential]
	if !ok {
		return "", catalog.ErrUnknownCredential
	}
	return tier, nil
}

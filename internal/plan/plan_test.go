package plan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
)

func TestTierEntitlements(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(500), TierBasic.Ceiling())
	assert.Equal(t, int64(5000), TierPro.Ceiling())
	assert.Equal(t, int64(30000), TierUltra.Ceiling())
	assert.Equal(t, int64(100000), TierMega.Ceiling())

	assert.Equal(t, 20, TierBasic.ListLimit())
	assert.Equal(t, 50, TierPro.ListLimit())
	assert.Equal(t, 100, TierUltra.ListLimit())
	assert.Equal(t, 100, TierMega.ListLimit())

	assert.False(t, TierBasic.Entitlements().Pricing)
	assert.True(t, TierPro.Entitlements().Pricing)
	assert.False(t, TierUltra.Entitlements().SourcePage)
	assert.True(t, TierMega.Entitlements().SourcePage)
}

func TestUnknownTierDegradesToBasic(t *testing.T) {
	t.Parallel()

	e := Tier("PLATINUM").Entitlements()
	assert.Equal(t, TierBasic.Entitlements(), e)
	assert.False(t, Tier("PLATINUM").Known())
}

func TestResolver(t *testing.T) {
	t.Parallel()

	r := NewResolver(map[string]string{
		"key-basic": "basic",
		"key-mega":  "MEGA",
		"key-bad":   "platinum",
	})

	tier, err := r.Resolve("key-basic")
	require.NoError(t, err)
	assert.Equal(t, TierBasic, tier)

	tier, err = r.Resolve("key-mega")
	require.NoError(t, err)
	assert.Equal(t, TierMega, tier)

	_, err = r.Resolve("")
	assert.True(t, errors.Is(err, catalog.ErrMissingCredential))

	_, err = r.Resolve("nope")
	assert.True(t, errors.Is(err, catalog.ErrUnknownCredential))

	// Entries mapping to unknown tiers are dropped at construction.
	_, err = r.Resolve("key-bad")
	assert.True(t, errors.Is(err, catalog.ErrUnknownCredential))
}

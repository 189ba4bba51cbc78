package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericPrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		display string
		want    int64
	}{
		{"1,299 MAD", 1299},
		{"1.299,00 Dhs", 129900},
		{"499 Dhs", 499},
		{"free", 0},
		{"", 0},
		{"--", 0},
		// Non-ASCII digits (Eastern Arabic numerals) are skipped, not
		// misread through rune arithmetic.
		{"١٢٣ MAD", 0},
		{"١٢٣ + 45 MAD", 45},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NumericPrice(tc.display), "display=%q", tc.display)
	}
}

func TestDraftNormalizeDefaultsCategory(t *testing.T) {
	t.Parallel()

	d, err := Draft{
		NaturalKey: "  https://example.com/p/1  ",
		Title:      " Phone ",
	}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/p/1", d.NaturalKey)
	assert.Equal(t, "Phone", d.Title)
	assert.Equal(t, CategoryUncategorized, d.Category)
}

func TestDraftNormalizeRejectsMissingFields(t *testing.T) {
	t.Parallel()

	_, err := Draft{Title: "Phone"}.Normalize()
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = Draft{NaturalKey: "https://example.com/p/1"}.Normalize()
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	// Whitespace-only keys are treated as missing.
	_, err = Draft{NaturalKey: "   ", Title: "Phone"}.Normalize()
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

package insight

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placescope/placescope/internal/domain/place"
)

func TestDefaultComparator(t *testing.T) {
	cmp := DefaultComparator()

	t.Run("higher_trust_sorts_first", func(t *testing.T) {
		a := rec(0, 10, 0.9, "")
		b := rec(0, 900, 0.4, "")
		assert.True(t, cmp(a, b))
		assert.False(t, cmp(b, a))
	})

	t.Run("trust_tie_breaks_on_reviews", func(t *testing.T) {
		a := rec(0, 500, 0.7, "")
		b := rec(0, 120, 0.7, "")
		assert.True(t, cmp(a, b))
		assert.False(t, cmp(b, a))
	})

	t.Run("rating_never_breaks_ties", func(t *testing.T) {
		a := rec(5.0, 100, 0.7, "")
		b := rec(1.0, 100, 0.7, "")
		assert.False(t, cmp(a, b))
		assert.False(t, cmp(b, a))
	})

	t.Run("nan_trust_compares_as_zero", func(t *testing.T) {
		a := rec(0, 10, 0.5, "")
		b := rec(0, 10, math.NaN(), "")
		assert.True(t, cmp(a, b))
		assert.False(t, cmp(b, a))
	})
}

func TestMustGoComparator(t *testing.T) {
	cmp := MustGoComparator()

	t.Run("trust_dominates", func(t *testing.T) {
		a := rec(1.0, 5, 0.9, "")
		b := rec(5.0, 5000, 0.8, "")
		assert.True(t, cmp(a, b))
	})

	t.Run("reviews_break_trust_ties", func(t *testing.T) {
		a := rec(1.0, 900, 0.8, "")
		b := rec(5.0, 100, 0.8, "")
		assert.True(t, cmp(a, b))
	})

	t.Run("rating_breaks_remaining_ties", func(t *testing.T) {
		a := rec(4.8, 100, 0.8, "")
		b := rec(4.2, 100, 0.8, "")
		assert.True(t, cmp(a, b))
		assert.False(t, cmp(b, a))
	})

	t.Run("full_tie_reports_false_both_ways", func(t *testing.T) {
		a := rec(4.8, 100, 0.8, "")
		b := rec(4.8, 100, 0.8, "")
		assert.False(t, cmp(a, b))
		assert.False(t, cmp(b, a))
	})
}

func TestParseSort(t *testing.T) {
	lowTrust := rec(2.0, 50, 0.2, "")
	highTrust := rec(4.0, 500, 0.9, "")

	t.Run("empty_directive_is_default_order", func(t *testing.T) {
		cmp, ok := ParseSort("")
		assert.True(t, ok)
		assert.True(t, cmp(highTrust, lowTrust))
	})

	t.Run("must_go_is_recognized", func(t *testing.T) {
		cmp, ok := ParseSort("must-go")
		assert.True(t, ok)
		assert.True(t, cmp(highTrust, lowTrust))
	})

	t.Run("desc_rating", func(t *testing.T) {
		cmp, ok := ParseSort("desc:rating")
		require.True(t, ok)
		assert.True(t, cmp(rec(4.9, 0, 0, ""), rec(4.1, 0, 0, "")))
		assert.False(t, cmp(rec(4.1, 0, 0, ""), rec(4.9, 0, 0, "")))
	})

	t.Run("asc_reviews", func(t *testing.T) {
		cmp, ok := ParseSort("asc:reviews")
		require.True(t, ok)
		assert.True(t, cmp(rec(0, 10, 0, ""), rec(0, 200, 0, "")))
	})

	t.Run("field_aliases_resolve", func(t *testing.T) {
		for _, directive := range []string{
			"desc:bayes_score",
			"desc:trust_score",
			"desc:trust",
			"desc:bayesScore",
		} {
			cmp, ok := ParseSort(directive)
			require.True(t, ok, "directive %q", directive)
			assert.True(t, cmp(highTrust, lowTrust), "directive %q", directive)
		}
	})

	t.Run("case_and_whitespace_tolerated", func(t *testing.T) {
		cmp, ok := ParseSort("  DESC:Rating ")
		require.True(t, ok)
		assert.True(t, cmp(rec(4.9, 0, 0, ""), rec(4.1, 0, 0, "")))
	})

	t.Run("unrecognized_directives_fall_back", func(t *testing.T) {
		for _, directive := range []string{
			"rating",
			"desc:",
			"desc:name",
			"desc:sentiment",
			"upwards:rating",
			"desc:rating:extra",
		} {
			cmp, ok := ParseSort(directive)
			assert.False(t, ok, "directive %q", directive)
			require.NotNil(t, cmp, "directive %q", directive)
			assert.True(t, cmp(highTrust, lowTrust), "fallback must be the default order")
		}
	})
}

func TestComparator_StableSortPreservesInputOrder(t *testing.T) {
	records := []place.Record{
		{ID: "first", TrustScore: 0.5, ReviewCount: 100},
		{ID: "second", TrustScore: 0.5, ReviewCount: 100},
		{ID: "third", TrustScore: 0.5, ReviewCount: 100},
		{ID: "top", TrustScore: 0.9, ReviewCount: 10},
	}

	cmp := DefaultComparator()
	sort.SliceStable(records, func(i, j int) bool { return cmp(records[i], records[j]) })

	require.Len(t, records, 4)
	assert.Equal(t, "top", records[0].ID)
	assert.Equal(t, "first", records[1].ID)
	assert.Equal(t, "second", records[2].ID)
	assert.Equal(t, "third", records[3].ID)
}

// Package ranking applies the current selection to the working dataset: a
// fixed sequence of filter stages followed by a stable sort with the active
// rule's comparator.  The pipeline is pure; it never mutates its input and
// produces identical output for identical input.
package ranking

import (
	"sort"
	"strings"

	"github.com/placescope/placescope/internal/domain/insight"
	"github.com/placescope/placescope/internal/domain/place"
)

// Apply runs the filter stages in their fixed order and stable-sorts the
// survivors with the rule's comparator.
//
// Stage order: district, category, insight predicate, free-text, sentiment,
// price bucket, tag superset.  The first three stages are skipped while a
// similarity session is active.
func Apply(records []place.Record, rule insight.Rule, state FilterState, similarityActive bool) []place.Record {
	out := make([]place.Record, 0, len(records))
	for _, rec := range records {
		if Matches(rec, rule, state, similarityActive) {
			out = append(out, rec)
		}
	}

	cmp := rule.Comparator
	if cmp == nil {
		cmp = insight.DefaultComparator()
	}
	sort.SliceStable(out, func(i, j int) bool { return cmp(out[i], out[j]) })
	return out
}

// Matches reports whether a single record survives every applicable stage.
func Matches(rec place.Record, rule insight.Rule, state FilterState, similarityActive bool) bool {
	if !similarityActive {
		if state.District != "" && rec.District != state.District {
			return false
		}
		if len(state.Categories) > 0 && !inSet(state.Categories, rec.Category) {
			return false
		}
		if !rule.Predicate.Match(rec) {
			return false
		}
	}

	if q := strings.ToLower(strings.TrimSpace(state.Query)); q != "" {
		if !strings.Contains(rec.SearchText(), q) {
			return false
		}
	}
	if state.Sentiment != "" && rec.Sentiment != state.Sentiment {
		return false
	}
	if state.PriceBucket != "" && rec.PriceBucket != state.PriceBucket {
		return false
	}
	for _, tag := range state.Tags {
		if !rec.HasTag(tag) {
			return false
		}
	}
	return true
}

func inSet(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

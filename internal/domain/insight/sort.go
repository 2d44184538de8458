package insight

import (
	"strings"

	"github.com/placescope/placescope/internal/domain/place"
)

// Comparator is a strict-weak "less" ordering over records, consumed by the
// pipeline's stable sort.  Ties report false and keep their input order.
type Comparator func(a, b place.Record) bool

// SortMustGo is the named special comparator directive.
const SortMustGo = "must-go"

// DefaultComparator orders by descending trust score, tie-broken by
// descending review count.  It is the order of the synthetic "all" rule and
// of every rule without a parseable sort directive.
func DefaultComparator() Comparator {
	return func(a, b place.Record) bool {
		at, bt := FieldTrust.Value(a), FieldTrust.Value(b)
		if at != bt {
			return at > bt
		}
		return FieldReviews.Value(a) > FieldReviews.Value(b)
	}
}

// MustGoComparator breaks ties hierarchically: descending trust score, then
// descending review count, then descending rating, each key consulted only
// when the prior keys compare equal.
func MustGoComparator() Comparator {
	return func(a, b place.Record) bool {
		at, bt := FieldTrust.Value(a), FieldTrust.Value(b)
		if at != bt {
			return at > bt
		}
		ar, br := FieldReviews.Value(a), FieldReviews.Value(b)
		if ar != br {
			return ar > br
		}
		return FieldRating.Value(a) > FieldRating.Value(b)
	}
}

// fieldComparator orders by a single numeric field in the given direction.
func fieldComparator(f Field, desc bool) Comparator {
	return func(a, b place.Record) bool {
		av, bv := f.Value(a), f.Value(b)
		if desc {
			return av > bv
		}
		return av < bv
	}
}

// ParseSort resolves a sort directive of the form "direction:fieldName"
// ("asc"/"desc" over the rating, review-count, or trust-score vocabulary) or
// the named special "must-go".  An empty directive is the default order.
// The second return reports whether the directive was recognized; callers
// fall back to DefaultComparator and log when it was not.
func ParseSort(directive string) (Comparator, bool) {
	d := strings.ToLower(strings.TrimSpace(directive))
	if d == "" {
		return DefaultComparator(), true
	}
	if d == SortMustGo {
		return MustGoComparator(), true
	}

	parts := strings.SplitN(d, ":", 2)
	if len(parts) != 2 {
		return DefaultComparator(), false
	}

	var desc bool
	switch strings.TrimSpace(parts[0]) {
	case "desc":
		desc = true
	case "asc":
		desc = false
	default:
		return DefaultComparator(), false
	}

	field := canonicalField(strings.TrimSpace(parts[1]))
	switch field {
	case FieldRating, FieldReviews, FieldTrust:
		return fieldComparator(field, desc), true
	default:
		return DefaultComparator(), false
	}
}

package insight

import (
	"strings"

	"github.com/placescope/placescope/internal/domain/place"
)

// Shape identifies which of the closed set of rule shapes a predicate was
// classified as.  ShapeAlwaysTrue covers both the synthetic "all" rule and
// every degraded (unrecognized) rule text.
type Shape int

const (
	ShapeAlwaysTrue Shape = iota
	ShapeRangeCapped
	ShapeTrustThreshold
	ShapeRatingThreshold
	ShapeTextContainment
)

// String names the shape for diagnostics and the rules lint command.
func (s Shape) String() string {
	switch s {
	case ShapeAlwaysTrue:
		return "always-true"
	case ShapeRangeCapped:
		return "range-capped"
	case ShapeTrustThreshold:
		return "trust-threshold"
	case ShapeRatingThreshold:
		return "rating-threshold"
	case ShapeTextContainment:
		return "text-containment"
	default:
		return "unknown"
	}
}

// Predicate is a compiled filter rule: one shape tag plus the parameters
// that shape uses.  Evaluation is closed-form per shape; a Predicate never
// interprets rule text at match time.
type Predicate struct {
	Shape Shape

	// MinRating, MinReviews, MaxReviews, MinTrust parameterize the numeric
	// shapes; only the fields the shape consumes are meaningful.
	MinRating  float64
	MinReviews float64
	MaxReviews float64
	MinTrust   float64

	// ExcludeSentiment, when non-empty, rejects records whose sentiment
	// equals it (the "sentiment ≠ S" conjunct of the range and trust shapes).
	ExcludeSentiment string

	// Term is the lower-cased search term of the text-containment shape.
	Term string
}

// AlwaysTrue is the fail-open predicate used by the synthetic "all" rule and
// by every degraded rule text.
func AlwaysTrue() Predicate {
	return Predicate{Shape: ShapeAlwaysTrue}
}

// Match reports whether the record satisfies the predicate.  Numeric reads
// coerce non-finite values to zero and never panic.
func (p Predicate) Match(rec place.Record) bool {
	switch p.Shape {
	case ShapeRangeCapped:
		reviews := FieldReviews.Value(rec)
		if FieldRating.Value(rec) < p.MinRating {
			return false
		}
		if reviews < p.MinReviews || reviews > p.MaxReviews {
			return false
		}
		return p.sentimentAllowed(rec)

	case ShapeTrustThreshold:
		if FieldTrust.Value(rec) < p.MinTrust {
			return false
		}
		if FieldReviews.Value(rec) < p.MinReviews {
			return false
		}
		return p.sentimentAllowed(rec)

	case ShapeRatingThreshold:
		return FieldRating.Value(rec) >= p.MinRating &&
			FieldReviews.Value(rec) >= p.MinReviews

	case ShapeTextContainment:
		return strings.Contains(rec.SearchText(), p.Term)

	default:
		return true
	}
}

func (p Predicate) sentimentAllowed(rec place.Record) bool {
	return p.ExcludeSentiment == "" || rec.Sentiment != p.ExcludeSentiment
}

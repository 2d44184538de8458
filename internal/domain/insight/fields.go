// Package insight implements the configuration rule compiler: it turns the
// small closed set of rule-text shapes served by the insight configuration
// document into predicates, heat weight functions, and sort comparators.
// Rule texts are never executed; they are classified into tagged variants
// with closed-form evaluation, so no configuration input can run code.
package insight

import (
	"math"
	"strings"

	"github.com/placescope/placescope/internal/domain/place"
)

// Field identifies one of the record fields the rule vocabulary may name.
type Field int

const (
	FieldUnknown Field = iota
	FieldRating
	FieldReviews
	FieldTrust
	FieldSentiment
)

// String returns the canonical field name.
func (f Field) String() string {
	switch f {
	case FieldRating:
		return "rating"
	case FieldReviews:
		return "reviews"
	case FieldTrust:
		return "trust"
	case FieldSentiment:
		return "sentiment"
	default:
		return "unknown"
	}
}

// fieldAliases maps every rule-vocabulary spelling onto its canonical Field.
// Spellings are matched after stripping an optional "p." or "place." prefix.
var fieldAliases = map[string]Field{
	"rating": FieldRating,
	"stars":  FieldRating,

	"reviews":      FieldReviews,
	"review_count": FieldReviews,
	"reviewcount":  FieldReviews,
	"votes":        FieldReviews,
	"rating_count": FieldReviews,
	"ratingcount":  FieldReviews,

	"bayes":       FieldTrust,
	"bayes_score": FieldTrust,
	"bayesscore":  FieldTrust,
	"trust":       FieldTrust,
	"trust_score": FieldTrust,
	"trustscore":  FieldTrust,

	"sentiment":       FieldSentiment,
	"sentiment_label": FieldSentiment,
	"sentimentlabel":  FieldSentiment,
}

// canonicalField resolves a rule-text field reference such as "p.rating",
// "place.bayes_score", or a bare "reviews" to its Field.  Anything outside
// the vocabulary, including deeper paths, resolves to FieldUnknown.
func canonicalField(ref string) Field {
	name := ref
	if i := strings.IndexByte(name, '.'); i >= 0 {
		prefix := name[:i]
		if prefix != "p" && prefix != "place" {
			return FieldUnknown
		}
		name = name[i+1:]
		if strings.ContainsRune(name, '.') {
			return FieldUnknown
		}
	}
	return fieldAliases[strings.ToLower(name)]
}

// Value reads the field's numeric value from a record, coercing missing and
// non-finite values to zero.  FieldSentiment and FieldUnknown have no numeric
// value and read as zero.
func (f Field) Value(rec place.Record) float64 {
	var v float64
	switch f {
	case FieldRating:
		v = rec.Rating
	case FieldReviews:
		v = float64(rec.ReviewCount)
	case FieldTrust:
		v = rec.TrustScore
	default:
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

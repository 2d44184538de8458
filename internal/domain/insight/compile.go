package insight

import (
	"strings"

	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
)

// Compiler turns rule texts into compiled artifacts.  It recognizes a fixed,
// ordered set of shapes, most specific first, and degrades everything else:
// fail-open for predicates (always-true, so a misconfigured rule never hides
// data) and fail-closed for heat (always-zero, so an unexpected field never
// corrupts visualization scaling).  Neither compile method can fail.
type Compiler struct {
	log logging.Logger
}

// NewCompiler builds a Compiler.  A nil logger falls back to the no-op logger.
func NewCompiler(log logging.Logger) *Compiler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Compiler{log: log}
}

// CompilePredicate compiles a predicate rule text.  Empty input is the
// always-true predicate.  Unrecognized input logs a warning identifying the
// text and fails open to always-true.
func (c *Compiler) CompilePredicate(ruleText string) Predicate {
	p, ok := c.classifyPredicate(ruleText)
	if !ok {
		c.log.Warn("unrecognized predicate rule text, failing open",
			logging.String("rule", ruleText))
		return AlwaysTrue()
	}
	return p
}

// CompileHeat compiles a heat rule text.  Empty input returns nil, meaning
// the default blended formula applies.  Any shape other than a whitelisted
// field read with default logs a warning and fails closed to zero weight.
func (c *Compiler) CompileHeat(ruleText string) *HeatFunc {
	trimmed := strings.TrimSpace(ruleText)
	if trimmed == "" {
		return nil
	}

	expr, ok := parseHeatText(trimmed)
	if !ok {
		c.log.Warn("unrecognized heat rule text, failing closed",
			logging.String("rule", ruleText))
		return ZeroHeat()
	}

	field := canonicalField(expr.Field)
	switch field {
	case FieldRating, FieldReviews, FieldTrust:
	default:
		c.log.Warn("heat rule field outside whitelist, failing closed",
			logging.String("rule", ruleText),
			logging.String("field", expr.Field))
		return ZeroHeat()
	}

	h := &HeatFunc{Kind: HeatFieldRead, Field: field}
	if expr.Default != nil {
		h.Default = *expr.Default
	}
	return h
}

// CompileSort resolves a sort directive, logging a warning and returning the
// default order when the directive is unrecognized.
func (c *Compiler) CompileSort(directive string) Comparator {
	cmp, ok := ParseSort(directive)
	if !ok {
		c.log.Warn("unrecognized sort directive, using default order",
			logging.String("directive", directive))
	}
	return cmp
}

// classifyPredicate parses and classifies a predicate rule text into one of
// the closed shapes.  The grammar is deliberately wider than the shape set;
// any parse that does not collapse into exactly one shape, with no leftover
// constraints, is unrecognized.
func (c *Compiler) classifyPredicate(text string) (Predicate, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return AlwaysTrue(), true
	}

	expr, ok := parsePredicateText(trimmed)
	if !ok {
		return Predicate{}, false
	}

	// Bare quoted term: the text-containment shape.
	if expr.Term != nil {
		term := strings.ToLower(strings.TrimSpace(unquote(*expr.Term)))
		if term == "" {
			return Predicate{}, false
		}
		return Predicate{Shape: ShapeTextContainment, Term: term}, true
	}

	// Collect at most one constraint per role from the conjunction.
	var (
		ratingMin    *float64
		reviewsMin   *float64
		reviewsMax   *float64
		trustMin     *float64
		sentimentNot *string
	)
	for _, cl := range expr.Conj.clauses() {
		switch canonicalField(cl.Field) {
		case FieldRating:
			n, isNum := cl.Value.number()
			if !isNum || cl.Op != ">=" || ratingMin != nil {
				return Predicate{}, false
			}
			ratingMin = &n

		case FieldReviews:
			n, isNum := cl.Value.number()
			if !isNum {
				return Predicate{}, false
			}
			switch cl.Op {
			case ">=":
				if reviewsMin != nil {
					return Predicate{}, false
				}
				reviewsMin = &n
			case "<=":
				if reviewsMax != nil {
					return Predicate{}, false
				}
				reviewsMax = &n
			default:
				return Predicate{}, false
			}

		case FieldTrust:
			n, isNum := cl.Value.number()
			if !isNum || cl.Op != ">=" || trustMin != nil {
				return Predicate{}, false
			}
			trustMin = &n

		case FieldSentiment:
			s, isStr := cl.Value.text()
			if !isStr || (cl.Op != "!==" && cl.Op != "!=") || sentimentNot != nil {
				return Predicate{}, false
			}
			sentimentNot = &s

		default:
			return Predicate{}, false
		}
	}

	// Shape selection, most specific first.  The presence of both review
	// bounds selects the range shape before any threshold shape; constraints
	// a shape does not consume make the whole text unrecognized.
	switch {
	case reviewsMin != nil && reviewsMax != nil:
		if trustMin != nil {
			return Predicate{}, false
		}
		p := Predicate{
			Shape:      ShapeRangeCapped,
			MinReviews: *reviewsMin,
			MaxReviews: *reviewsMax,
		}
		if ratingMin != nil {
			p.MinRating = *ratingMin
		}
		if sentimentNot != nil {
			p.ExcludeSentiment = *sentimentNot
		}
		return p, true

	case trustMin != nil:
		if ratingMin != nil || reviewsMax != nil {
			return Predicate{}, false
		}
		p := Predicate{Shape: ShapeTrustThreshold, MinTrust: *trustMin}
		if reviewsMin != nil {
			p.MinReviews = *reviewsMin
		}
		if sentimentNot != nil {
			p.ExcludeSentiment = *sentimentNot
		}
		return p, true

	case ratingMin != nil:
		if reviewsMax != nil || sentimentNot != nil {
			return Predicate{}, false
		}
		p := Predicate{Shape: ShapeRatingThreshold, MinRating: *ratingMin}
		if reviewsMin != nil {
			p.MinReviews = *reviewsMin
		}
		return p, true

	default:
		return Predicate{}, false
	}
}

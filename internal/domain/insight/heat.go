package insight

import (
	"math"

	"github.com/placescope/placescope/internal/domain/place"
)

// HeatKind tags a compiled heat function.
type HeatKind int

const (
	// HeatZero is the fail-closed degraded form: zero weight for every record.
	HeatZero HeatKind = iota
	// HeatFieldRead reads one whitelisted numeric field with a default.
	HeatFieldRead
)

// String names the kind for diagnostics and the rules lint command.
func (k HeatKind) String() string {
	switch k {
	case HeatFieldRead:
		return "field-read"
	default:
		return "zero"
	}
}

// HeatFunc is a compiled heat rule: a whitelisted field read with a default,
// or the degraded always-zero form.  A nil *HeatFunc means the rule carries
// no heat source and the evaluator's default blend applies instead.
type HeatFunc struct {
	Kind    HeatKind
	Field   Field
	Default float64
}

// ZeroHeat is the fail-closed heat function.
func ZeroHeat() *HeatFunc {
	return &HeatFunc{Kind: HeatZero}
}

// Weight evaluates the heat function for one record.  A field value of zero
// or a non-finite value falls back to the default, mirroring the source
// vocabulary's "|| default" fallback; the result is not clamped here, the
// evaluator clamps all weights uniformly.
func (h *HeatFunc) Weight(rec place.Record) float64 {
	if h == nil || h.Kind != HeatFieldRead {
		return 0
	}
	v := h.Field.Value(rec)
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return h.Default
	}
	return v
}

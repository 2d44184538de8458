// Package heatmap computes bounded per-record weights for heatmap rendering.
// Weights are always in [0, 1] regardless of input quality; records without
// valid coordinates never become points.
package heatmap

import (
	"math"

	"github.com/placescope/placescope/internal/domain/insight"
	"github.com/placescope/placescope/internal/domain/place"
)

// Default blend parameters, applied when the active rule carries no heat
// source: trustShare·trust + volumeShare·(reviews/volumeCeiling, capped at 1).
const (
	trustShare    = 0.65
	volumeShare   = 0.35
	volumeCeiling = 500.0
)

// Point is one weighted heatmap coordinate.
type Point struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Weight float64 `json:"weight"`
}

// Weight returns the heat weight of a record under the active rule.  The
// rule's heat function is used when present, the default blend otherwise;
// the result is clamped to [0, 1] either way.
func Weight(rec place.Record, rule insight.Rule) float64 {
	if rule.Heat != nil {
		return clamp01(rule.Heat.Weight(rec))
	}
	trust := clamp01(rec.TrustScore)
	volume := clamp01(float64(rec.ReviewCount) / volumeCeiling)
	return clamp01(trustShare*trust + volumeShare*volume)
}

// Points converts records into weighted heatmap points, dropping any record
// without valid coordinates.
func Points(records []place.Record, rule insight.Rule) []Point {
	out := make([]Point, 0, len(records))
	for _, rec := range records {
		if !rec.HasValidCoordinates() {
			continue
		}
		out = append(out, Point{Lat: rec.Lat, Lng: rec.Lng, Weight: Weight(rec, rule)})
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Package place implements the canonical place record and the dataset
// normalizer that maps heterogeneous upstream payloads onto it.  All
// geographic and identity validation lives here; downstream components
// (pipeline, evaluator, session) may assume every record in a working
// dataset carries finite, range-valid coordinates and a non-empty ID.
package place

import (
	"math"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Record
// ─────────────────────────────────────────────────────────────────────────────

// Record is one point of interest in its canonical form.  Records are
// immutable after normalization; dataset reloads replace them wholesale and
// never mutate individual records in place.
type Record struct {
	// ── Identity ─────────────────────────────────────────────────────────────
	ID      string `json:"id"`
	PlaceID string `json:"place_id,omitempty"`

	// ── Geography ────────────────────────────────────────────────────────────
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`

	// ── Classification ───────────────────────────────────────────────────────
	District    string `json:"district,omitempty"`
	Category    string `json:"category,omitempty"`
	Sentiment   string `json:"sentiment,omitempty"`
	PriceBucket string `json:"price_bucket,omitempty"`

	// ── Ranking inputs ───────────────────────────────────────────────────────
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	TrustScore  float64 `json:"trust_score"`

	// ── Descriptive ──────────────────────────────────────────────────────────
	Name    string   `json:"name,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Link    string   `json:"link,omitempty"`
	Pros    []string `json:"pros,omitempty"`
}

// ValidCoordinates reports whether lat/lng are finite and within the valid
// geographic range, boundary inclusive: −90 ≤ lat ≤ 90, −180 ≤ lng ≤ 180.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// HasValidCoordinates reports whether the record's own coordinates pass
// ValidCoordinates.
func (r Record) HasValidCoordinates() bool {
	return ValidCoordinates(r.Lat, r.Lng)
}

// SearchText returns the lower-cased concatenation of name, tags, category,
// and district, the haystack for free-text and text-containment matching.
func (r Record) SearchText() string {
	var b strings.Builder
	b.Grow(len(r.Name) + len(r.Category) + len(r.District) + 16*len(r.Tags))
	b.WriteString(r.Name)
	for _, t := range r.Tags {
		b.WriteByte(' ')
		b.WriteString(t)
	}
	b.WriteByte(' ')
	b.WriteString(r.Category)
	b.WriteByte(' ')
	b.WriteString(r.District)
	return strings.ToLower(b.String())
}

// HasTag reports whether tag is present in the record's tag set,
// case-insensitively.
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// FindByID returns the first record with the given id and true, or the zero
// Record and false when absent.
func FindByID(records []Record, id string) (Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

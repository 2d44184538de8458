package place

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/pkg/errors"
)

// defaultMaxRecords caps the working dataset when the caller does not
// configure a limit.
const defaultMaxRecords = 20000

// ─────────────────────────────────────────────────────────────────────────────
// Upstream field aliases, first present wins
// ─────────────────────────────────────────────────────────────────────────────

var (
	idAliases          = []string{"id", "place_id", "placeId", "uid"}
	placeIDAliases     = []string{"place_id", "placeId", "id"}
	nameAliases        = []string{"name", "title", "display_name"}
	latAliases         = []string{"lat", "latitude", "location.lat", "geometry.lat", "coords.lat"}
	lngAliases         = []string{"lng", "lon", "longitude", "location.lng", "geometry.lng", "coords.lng"}
	ratingAliases      = []string{"rating", "stars", "avg_rating"}
	reviewCountAliases = []string{"review_count", "reviews", "rating_count", "user_ratings_total", "votes"}
	trustScoreAliases  = []string{"bayes_score", "trust_score", "confidence", "bayes"}
	districtAliases    = []string{"district", "neighbourhood", "neighborhood", "area"}
	categoryAliases    = []string{"category", "type", "kind"}
	sentimentAliases   = []string{"sentiment", "sentiment_label"}
	priceAliases       = []string{"price_bucket", "price_level", "price"}
	tagAliases         = []string{"tags", "keywords", "labels"}
	summaryAliases     = []string{"summary", "description", "snippet"}
	linkAliases        = []string{"link", "url", "website"}

	prosAliases          = []string{"pros", "highlights"}
	districtLabelAliases = []string{"district_label", "district_name"}
)

// ─────────────────────────────────────────────────────────────────────────────
// Result and Normalizer
// ─────────────────────────────────────────────────────────────────────────────

// Result is the outcome of normalizing one upstream places payload.
type Result struct {
	// Records holds the accepted canonical records, in payload order.
	Records []Record

	// Rejected counts records dropped for missing identity, invalid
	// coordinates, or duplicate ids.
	Rejected int

	// DistrictLabels maps district key to its display label, taken from the
	// first record observed per key.
	DistrictLabels map[string]string
}

// Normalizer maps raw upstream payloads onto canonical Records.  A zero
// max-records value falls back to the default cap; a nil logger falls back to
// the no-op logger.
type Normalizer struct {
	maxRecords int
	log        logging.Logger
}

// NewNormalizer builds a Normalizer with the given dataset cap and logger.
func NewNormalizer(maxRecords int, log logging.Logger) *Normalizer {
	if maxRecords <= 0 {
		maxRecords = defaultMaxRecords
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Normalizer{maxRecords: maxRecords, log: log}
}

// Normalize parses a places payload of the form {"results": [...]} and maps
// each entry onto a canonical Record.  A payload without a results array is a
// hard error; individually invalid records are counted in Result.Rejected and
// never fail the batch.
func (n *Normalizer) Normalize(raw []byte) (Result, error) {
	if !gjson.ValidBytes(raw) {
		return Result{}, errors.New(errors.ErrCodeUpstreamMalformed, "places payload is not valid JSON")
	}
	results := gjson.GetBytes(raw, "results")
	if !results.IsArray() {
		return Result{}, errors.New(errors.ErrCodeUpstreamMalformed, "places payload has no results array")
	}

	res := Result{DistrictLabels: make(map[string]string)}
	seen := make(map[string]struct{})
	truncated := 0

	results.ForEach(func(_, item gjson.Result) bool {
		if len(res.Records) >= n.maxRecords {
			truncated++
			return true
		}

		rec, ok := n.normalizeOne(item)
		if !ok {
			res.Rejected++
			return true
		}
		if _, dup := seen[rec.ID]; dup {
			n.log.Debug("duplicate place id dropped", logging.String("id", rec.ID))
			res.Rejected++
			return true
		}
		seen[rec.ID] = struct{}{}
		res.Records = append(res.Records, rec)

		// District display label, first record per key wins.
		if rec.District != "" {
			if _, exists := res.DistrictLabels[rec.District]; !exists {
				label := firstString(item, districtLabelAliases)
				if label == "" {
					label = rec.District
				}
				res.DistrictLabels[rec.District] = label
			}
		}
		return true
	})

	if truncated > 0 {
		n.log.Warn("dataset truncated at record cap",
			logging.Int("cap", n.maxRecords),
			logging.Int("dropped", truncated))
	}

	return res, nil
}

// NormalizeList parses a similarity-style payload: a bare array, or an object
// carrying the array under "results" or "items".  Entries pass the same
// identity and coordinate validation as Normalize.
func (n *Normalizer) NormalizeList(raw []byte) ([]Record, int, error) {
	if !gjson.ValidBytes(raw) {
		return nil, 0, errors.New(errors.ErrCodeUpstreamMalformed, "similarity payload is not valid JSON")
	}

	parsed := gjson.ParseBytes(raw)
	list := parsed
	if !parsed.IsArray() {
		list = parsed.Get("results")
		if !list.IsArray() {
			list = parsed.Get("items")
		}
	}
	if !list.IsArray() {
		return nil, 0, errors.New(errors.ErrCodeUpstreamMalformed, "similarity payload has no results or items array")
	}

	var records []Record
	rejected := 0
	seen := make(map[string]struct{})

	list.ForEach(func(_, item gjson.Result) bool {
		rec, ok := n.normalizeOne(item)
		if !ok {
			rejected++
			return true
		}
		if _, dup := seen[rec.ID]; dup {
			rejected++
			return true
		}
		seen[rec.ID] = struct{}{}
		records = append(records, rec)
		return true
	})

	return records, rejected, nil
}

// normalizeOne maps a single raw entry onto a Record, reporting false when
// the entry must be rejected.
func (n *Normalizer) normalizeOne(item gjson.Result) (Record, bool) {
	id := firstString(item, idAliases)
	if id == "" {
		n.log.Debug("record rejected: no identity field")
		return Record{}, false
	}

	lat, okLat := firstFloat(item, latAliases)
	lng, okLng := firstFloat(item, lngAliases)
	if !okLat || !okLng || !ValidCoordinates(lat, lng) {
		n.log.Debug("record rejected: invalid coordinates", logging.String("id", id))
		return Record{}, false
	}

	rec := Record{
		ID:          id,
		PlaceID:     firstString(item, placeIDAliases),
		Lat:         lat,
		Lng:         lng,
		Name:        firstString(item, nameAliases),
		District:    firstString(item, districtAliases),
		Category:    firstString(item, categoryAliases),
		Sentiment:   firstString(item, sentimentAliases),
		PriceBucket: firstString(item, priceAliases),
		Rating:      finiteOrZero(floatOrZero(item, ratingAliases)),
		ReviewCount: countOrZero(item, reviewCountAliases),
		TrustScore:  finiteOrZero(floatOrZero(item, trustScoreAliases)),
		Summary:     firstString(item, summaryAliases),
		Link:        firstString(item, linkAliases),
		Tags:        stringList(item, tagAliases),
		Pros:        stringList(item, prosAliases),
	}
	if rec.PlaceID == "" {
		rec.PlaceID = rec.ID
	}
	if rec.Name == "" {
		n.log.Warn("record has no display name", logging.String("id", id))
	}
	return rec, true
}

// ─────────────────────────────────────────────────────────────────────────────
// Field extraction helpers
// ─────────────────────────────────────────────────────────────────────────────

// firstString returns the first non-empty string value among the aliases.
// Numeric values stringify, so numeric ids are accepted.
func firstString(item gjson.Result, aliases []string) string {
	for _, alias := range aliases {
		v := item.Get(alias)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if v.IsArray() || v.IsObject() {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

// firstFloat returns the first alias value parseable as a float.  JSON
// numbers and numeric strings both parse; a present but unparseable value
// falls through to the next alias.  Non-finite parses (a "NaN" string) are
// returned as-is for the caller's range validation to reject.
func firstFloat(item gjson.Result, aliases []string) (float64, bool) {
	for _, alias := range aliases {
		v := item.Get(alias)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		switch v.Type {
		case gjson.Number:
			return v.Float(), true
		case gjson.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
			if err != nil {
				continue
			}
			return f, true
		}
	}
	return 0, false
}

// floatOrZero is firstFloat with a zero default for absent fields.
func floatOrZero(item gjson.Result, aliases []string) float64 {
	f, _ := firstFloat(item, aliases)
	return f
}

// countOrZero extracts a non-negative integer count, coercing negatives and
// non-finite values to zero.
func countOrZero(item gjson.Result, aliases []string) int {
	f, ok := firstFloat(item, aliases)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return int(f)
}

// finiteOrZero coerces NaN and infinities to zero.
func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// stringList extracts a list of strings from the first present alias.  An
// array value contributes its non-empty string elements; a plain string value
// is split on commas.
func stringList(item gjson.Result, aliases []string) []string {
	for _, alias := range aliases {
		v := item.Get(alias)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if v.IsArray() {
			var out []string
			for _, el := range v.Array() {
				if s := strings.TrimSpace(el.String()); s != "" {
					out = append(out, s)
				}
			}
			return out
		}
		if v.Type == gjson.String {
			var out []string
			for _, part := range strings.Split(v.String(), ",") {
				if s := strings.TrimSpace(part); s != "" {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return nil
}

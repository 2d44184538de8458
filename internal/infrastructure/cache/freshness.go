// Package cache persists the normalized dataset and its freshness record in
// Redis so a restart serves instantly from cache while a refresh proceeds in
// the background.  Every failure path degrades to a cache miss with a logged
// warning; the cache is never on the critical path.
package cache

import "time"

// Freshness records when a dataset was fetched from which source URL.  It is
// stored beside the dataset payload and decides staleness against the
// configured window.
type Freshness struct {
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Stale reports whether the record is older than the window at the given
// instant.  A zero record and a non-positive window are always stale.
func (f Freshness) Stale(window time.Duration, now time.Time) bool {
	if f.FetchedAt.IsZero() || window <= 0 {
		return true
	}
	return now.Sub(f.FetchedAt) > window
}

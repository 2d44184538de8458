// Package explorer orchestrates the filtering core: it loads and refreshes
// the dataset, owns the insight registry, and exposes the session-backed
// operations the HTTP layer serves.
package explorer

import (
	"context"
	"time"

	"github.com/placescope/placescope/internal/domain/place"
	"github.com/placescope/placescope/internal/domain/session"
	"github.com/placescope/placescope/internal/infrastructure/analytics"
	"github.com/placescope/placescope/internal/infrastructure/cache"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
)

// PlacesSource fetches and normalizes the full places dataset.
type PlacesSource interface {
	FetchDataset(ctx context.Context) (place.Result, error)
}

// InsightSource loads the insight rule document and the district boundary
// document, and reports on-disk changes for file-backed refs.
type InsightSource interface {
	FetchInsightDoc(ctx context.Context) ([]byte, error)
	FetchBoundaries(ctx context.Context) ([]byte, error)
	Watch(ctx context.Context, onChange func(ref string)) error
}

// DatasetCache is the freshness cache port.
type DatasetCache interface {
	GetDataset(ctx context.Context, url string) (cache.Dataset, cache.Freshness, bool)
	PutDataset(ctx context.Context, url string, ds cache.Dataset, fresh cache.Freshness) error
}

// Deps carries the service's collaborators.  Places is required; everything
// else degrades to a safe default when nil.  The placesapi client satisfies
// both Places and Similarity.
type Deps struct {
	Places     PlacesSource
	Similarity session.SimilarityFetcher
	Insights   InsightSource
	Cache      DatasetCache
	Notifier   session.Notifier
	Analytics  analytics.Emitter
	Logger     logging.Logger
	Now        func() time.Time
}

// Options carries the dataset lifecycle parameters.
type Options struct {
	// PlacesURL keys cache entries and deduplicates concurrent refreshes.
	PlacesURL string

	// FreshnessWindow is how long a fetched dataset serves without a
	// background refresh.
	FreshnessWindow time.Duration

	// RefreshInterval is the background loop period; zero disables the loop.
	RefreshInterval time.Duration
}

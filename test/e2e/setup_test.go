// Package e2e_test drives the assembled service through its public HTTP API
// using the Go SDK.  The upstream places, similarity, insight, and district
// sources are faked in-process, so the suite runs without any external
// dependency.
package e2e_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/placescope/placescope/internal/application/explorer"
	"github.com/placescope/placescope/internal/domain/place"
	"github.com/placescope/placescope/internal/infrastructure/insightsource"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/internal/infrastructure/placesapi"
	httpserver "github.com/placescope/placescope/internal/interfaces/http"
	"github.com/placescope/placescope/pkg/client"
)

// placesPayload is the base dataset: eight valid places across two districts
// plus one record with an out-of-range latitude that normalization rejects.
const placesPayload = `{
  "results": [
    {"id": "cafe-1", "name": "Third Wave Coffee", "lat": 52.5200, "lng": 13.4050,
     "district": "mitte", "district_label": "Berlin Mitte", "category": "cafe",
     "rating": 4.7, "reviews": 212, "bayes_score": 0.86,
     "sentiment": "positive", "price_bucket": "mid", "tags": ["quiet", "wifi"]},
    {"id": "cafe-2", "name": "Kaffeebar Eck", "lat": 52.5231, "lng": 13.4011,
     "district": "mitte", "district_label": "Berlin Mitte", "category": "cafe",
     "rating": 4.2, "reviews": 320, "bayes_score": 0.74, "sentiment": "positive", "price_bucket": "low"},
    {"id": "museum-1", "name": "Altes Museum", "lat": 52.5194, "lng": 13.3987,
     "district": "mitte", "district_label": "Berlin Mitte", "category": "museum",
     "rating": 4.8, "reviews": 150, "bayes_score": 0.90, "sentiment": "positive", "price_bucket": "high"},
    {"id": "bar-1", "name": "Nachtglanz", "lat": 52.5266, "lng": 13.4123,
     "district": "mitte", "district_label": "Berlin Mitte", "category": "bar",
     "rating": 4.6, "reviews": 95, "bayes_score": 0.66, "sentiment": "neutral", "price_bucket": "mid"},
    {"id": "cafe-3", "name": "Roestwerk", "lat": 52.4990, "lng": 13.4180,
     "district": "kreuzberg", "district_label": "Kreuzberg", "category": "cafe",
     "rating": 4.9, "reviews": 410, "bayes_score": 0.92,
     "sentiment": "positive", "price_bucket": "mid", "tags": ["quiet"]},
    {"id": "gallery-1", "name": "Kleine Galerie", "lat": 52.4971, "lng": 13.4222,
     "district": "kreuzberg", "district_label": "Kreuzberg", "category": "gallery",
     "rating": 4.4, "reviews": 60, "bayes_score": 0.81, "sentiment": "positive", "price_bucket": "low"},
    {"id": "bar-2", "name": "Spaetblick", "lat": 52.4938, "lng": 13.4256,
     "district": "kreuzberg", "district_label": "Kreuzberg", "category": "bar",
     "rating": 3.9, "reviews": 500, "bayes_score": 0.55, "sentiment": "negative", "price_bucket": "low"},
    {"id": "bakery-1", "name": "Backhaus Sued", "lat": 52.4955, "lng": 13.4102,
     "district": "kreuzberg", "district_label": "Kreuzberg", "category": "bakery",
     "rating": 4.5, "reviews": 120, "bayes_score": 0.70, "sentiment": "positive", "price_bucket": "low"},
    {"id": "broken-1", "name": "Nordpol", "lat": 95.0, "lng": 13.4, "district": "mitte", "rating": 5.0}
  ]
}`

// similarPayload echoes the anchor (which the session drops) plus two places
// outside the base dataset, in a district no base filter selects.
const similarPayload = `{
  "results": [
    {"id": "cafe-1", "name": "Third Wave Coffee", "lat": 52.5200, "lng": 13.4050,
     "district": "mitte", "category": "cafe", "rating": 4.7, "reviews": 212, "bayes_score": 0.86},
    {"id": "sim-1", "name": "Espresso Lab", "lat": 52.4811, "lng": 13.4399,
     "district": "neukoelln", "category": "cafe", "rating": 4.6, "reviews": 150, "bayes_score": 0.82},
    {"id": "sim-2", "name": "Filterkollektiv", "lat": 52.4790, "lng": 13.4421,
     "district": "neukoelln", "category": "cafe", "rating": 4.8, "reviews": 200, "bayes_score": 0.88}
  ]
}`

// insightsDoc configures two working rules and one with an unparseable
// predicate, which compiles degraded.
const insightsDoc = `{
  "top_rated": {
    "label": "Top rated",
    "emoji": "⭐",
    "order": 1,
    "filter": "p.rating >= 4.5 && p.reviews >= 100",
    "sort": "desc:rating",
    "heat": "p.trust_score || 0.5"
  },
  "hidden_gems": {
    "label": "Hidden gems",
    "emoji": "💎",
    "order": 2,
    "filter": "p.trust >= 0.7",
    "sort": "desc:trust"
  },
  "broken": {
    "label": "Broken",
    "order": 3,
    "filter": "category == 'museum'"
  }
}`

const districtsDoc = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"key": "mitte"},
     "geometry": {"type": "Polygon", "coordinates": [[[13.38, 52.51], [13.43, 52.51], [13.43, 52.54], [13.38, 52.54], [13.38, 52.51]]]}}
  ]
}`

// testEnv is the embedded application stack shared by every test in this
// package.
type testEnv struct {
	upstream *httptest.Server
	api      *httptest.Server
	svc      *explorer.Service
	sdk      *client.Client

	placesCalls int32
}

var env *testEnv

func TestMain(m *testing.M) {
	var err error
	env, err = setupTestEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "e2e setup failed: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	env.teardown()
	os.Exit(code)
}

func setupTestEnv() (*testEnv, error) {
	env := &testEnv{}

	mux := http.NewServeMux()
	mux.HandleFunc("/city.json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&env.placesCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(placesPayload))
	})
	mux.HandleFunc("/similar", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("anchor") == "" {
			http.Error(w, "anchor required", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(similarPayload))
	})
	mux.HandleFunc("/insights.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(insightsDoc))
	})
	mux.HandleFunc("/districts.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(districtsDoc))
	})
	env.upstream = httptest.NewServer(mux)

	log := logging.NewNopLogger()
	normalizer := place.NewNormalizer(0, log)
	placesClient := placesapi.NewClient(placesapi.Config{
		PlacesURL:        env.upstream.URL + "/city.json",
		SimilarURL:       env.upstream.URL + "/similar",
		Timeout:          5 * time.Second,
		SimilarCount:     12,
		SimilarThreshold: 0.35,
	}, normalizer, log)
	source := insightsource.NewSource(insightsource.Config{
		Insights:  env.upstream.URL + "/insights.json",
		Districts: env.upstream.URL + "/districts.json",
		Timeout:   5 * time.Second,
	}, log)

	svc, err := explorer.New(explorer.Deps{
		Places:     placesClient,
		Similarity: placesClient,
		Insights:   source,
		Logger:     log,
	}, explorer.Options{PlacesURL: env.upstream.URL + "/city.json"})
	if err != nil {
		return nil, fmt.Errorf("build service: %w", err)
	}
	if err := svc.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("start service: %w", err)
	}
	env.svc = svc

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Explorer: svc,
		Logger:   log,
		Mode:     gin.TestMode,
		Version:  "e2e",
	})
	env.api = httptest.NewServer(router)

	sdk, err := client.NewClient(env.api.URL)
	if err != nil {
		return nil, fmt.Errorf("build sdk client: %w", err)
	}
	env.sdk = sdk

	return env, nil
}

func (e *testEnv) teardown() {
	if e.api != nil {
		e.api.Close()
	}
	if e.svc != nil {
		_ = e.svc.Close()
	}
	if e.upstream != nil {
		e.upstream.Close()
	}
}

// resetSession restores the server-side session to its initial state so that
// tests do not depend on each other's leftovers.
func resetSession(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if _, err := env.sdk.Session().ExitSimilar(ctx); err != nil {
		t.Fatalf("exit similar: %v", err)
	}
	if _, err := env.sdk.Session().ResetFilters(ctx); err != nil {
		t.Fatalf("reset filters: %v", err)
	}
	if _, err := env.sdk.Session().Select(ctx, ""); err != nil {
		t.Fatalf("clear selection: %v", err)
	}
}

// Package metrics exposes placescope's Prometheus collectors.  Collectors are
// flat package-level variables registered once in init; callers increment
// them directly rather than going through an abstraction layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DatasetLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placescope_dataset_loads_total",
		Help: "Dataset loads by source (cache|upstream) and status (ok|error)",
	}, []string{"source", "status"})
	DatasetRefreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placescope_dataset_refreshes_total",
		Help: "Background dataset refreshes by status (ok|error)",
	}, []string{"status"})
	DatasetRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "placescope_dataset_records",
		Help: "Records in the working dataset after the last load",
	})
	DatasetRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placescope_dataset_rejected_total",
		Help: "Records rejected during normalization",
	})
	RuleDegradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placescope_rule_degraded_total",
		Help: "Insight rules degraded to a safe default, by kind (predicate|heat|sort)",
	}, []string{"kind"})
	PipelineApplySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "placescope_pipeline_apply_seconds",
		Help:    "Filter/sort pipeline duration per apply",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})
	PipelineVisibleRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "placescope_pipeline_visible_records",
		Help: "Records in the visible subset after the last apply",
	})
	SimilarityRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placescope_similarity_requests_total",
		Help: "Similarity requests by status (ok|error|noop)",
	}, []string{"status"})
	CacheOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placescope_cache_operations_total",
		Help: "Freshness cache operations by op (get|put) and status (hit|miss|ok|error)",
	}, []string{"op", "status"})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placescope_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "path", "status"})
	HTTPRequestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "placescope_http_request_seconds",
		Help:    "HTTP request duration by method and route",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"method", "path"})
	AnalyticsEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placescope_analytics_events_total",
		Help: "Analytics events by type and status (ok|dropped)",
	}, []string{"type", "status"})
)

func init() {
	prometheus.MustRegister(DatasetLoadsTotal)
	prometheus.MustRegister(DatasetRefreshesTotal)
	prometheus.MustRegister(DatasetRecords)
	prometheus.MustRegister(DatasetRejectedTotal)
	prometheus.MustRegister(RuleDegradedTotal)
	prometheus.MustRegister(PipelineApplySeconds)
	prometheus.MustRegister(PipelineVisibleRecords)
	prometheus.MustRegister(SimilarityRequestsTotal)
	prometheus.MustRegister(CacheOperationsTotal)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestSeconds)
	prometheus.MustRegister(AnalyticsEventsTotal)
}

// Handler returns the Prometheus scrape handler mounted at /metrics.
func Handler() http.Handler { return promhttp.Handler() }

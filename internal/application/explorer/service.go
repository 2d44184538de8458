package explorer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/placescope/placescope/internal/domain/insight"
	"github.com/placescope/placescope/internal/domain/place"
	"github.com/placescope/placescope/internal/domain/session"
	"github.com/placescope/placescope/internal/infrastructure/analytics"
	"github.com/placescope/placescope/internal/infrastructure/cache"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/metrics"
	"github.com/placescope/placescope/pkg/errors"
)

// Service wires the session, registry, and pipeline to the upstream sources
// and the freshness cache.  One instance serves the whole process.
type Service struct {
	places    PlacesSource
	insights  InsightSource
	dcache    DatasetCache
	notifier  session.Notifier
	analytics analytics.Emitter
	log       logging.Logger
	now       func() time.Time
	opts      Options

	session  *session.Session
	compiler *insight.Compiler

	mu         sync.RWMutex
	registry   *insight.Registry
	boundaries []byte
	ready      bool

	group  singleflight.Group
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Service.  Deps.Places is required; nil optional deps fall
// back to no-op implementations.
func New(deps Deps, opts Options) (*Service, error) {
	if deps.Places == nil {
		return nil, errors.New(errors.ErrCodeInternal, "explorer requires a places source")
	}

	log := deps.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = session.NewLogNotifier(log)
	}
	emitter := deps.Analytics
	if emitter == nil {
		emitter = analytics.NopEmitter{}
	}
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = 6 * time.Hour
	}

	s := &Service{
		places:    deps.Places,
		insights:  deps.Insights,
		dcache:    deps.Cache,
		notifier:  notifier,
		analytics: emitter,
		log:       log,
		now:       now,
		opts:      opts,
		compiler:  insight.NewCompiler(log),
		registry:  insight.DefaultRegistry(),
	}
	s.session = session.NewSession(deps.Similarity, notifier, log)
	return s, nil
}

// Start loads the insight configuration and the initial dataset, then starts
// the background refresh loop and the source watcher.  A failed initial load
// is logged and notified but does not abort startup; the service reports
// not-ready until a load succeeds.
func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.ReloadInsights(runCtx)
	s.reloadBoundaries(runCtx)

	if err := s.LoadDataset(runCtx); err != nil {
		s.log.Error("initial dataset load failed", logging.Err(err))
	}

	if s.opts.RefreshInterval > 0 {
		s.wg.Add(1)
		go s.refreshLoop(runCtx)
	}
	if s.insights != nil {
		s.wg.Add(1)
		go s.watchSources(runCtx)
	}
	return nil
}

// Close stops the background goroutines and waits for in-flight refreshes.
func (s *Service) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return nil
}

// Ready reports whether a dataset has been installed.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// ─────────────────────────────────────────────────────────────────────────────
// Dataset lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// LoadDataset serves the cached dataset when one exists, kicking a detached
// refresh if it is past the freshness window.  A cache miss falls through to
// a synchronous upstream fetch.
func (s *Service) LoadDataset(ctx context.Context) error {
	if s.dcache != nil && s.opts.PlacesURL != "" {
		if ds, fresh, ok := s.dcache.GetDataset(ctx, s.opts.PlacesURL); ok {
			s.install(ds.Records, ds.DistrictLabels, fresh.FetchedAt)
			metrics.DatasetLoadsTotal.WithLabelValues("cache", "ok").Inc()
			stale := fresh.Stale(s.opts.FreshnessWindow, s.now())
			s.log.Info("dataset served from cache",
				logging.Int("records", len(ds.Records)),
				logging.Bool("stale", stale))
			if stale {
				s.refreshDetached()
			}
			return nil
		}
	}
	return s.refreshOnce(ctx, false)
}

// Refresh reloads the dataset.  With force set the cache is bypassed and the
// upstream fetch runs in the background; otherwise it behaves like
// LoadDataset.
func (s *Service) Refresh(ctx context.Context, force bool) error {
	if force {
		s.refreshDetached()
		return nil
	}
	return s.LoadDataset(ctx)
}

// refreshOnce fetches from the upstream, installs the result, and writes the
// cache best-effort.  Foreground failures notify the user; background
// failures only log.
func (s *Service) refreshOnce(ctx context.Context, background bool) error {
	result, err := s.places.FetchDataset(ctx)
	if err != nil {
		metrics.DatasetLoadsTotal.WithLabelValues("upstream", "error").Inc()
		if background {
			s.log.Warn("background dataset refresh failed", logging.Err(err))
			return err
		}
		s.log.Error("dataset load failed", logging.Err(err))
		s.notifier.Notify(session.SeverityError, "Could not load places data")
		return err
	}

	fetchedAt := s.now().UTC()
	s.install(result.Records, result.DistrictLabels, fetchedAt)
	metrics.DatasetLoadsTotal.WithLabelValues("upstream", "ok").Inc()
	metrics.DatasetRejectedTotal.Add(float64(result.Rejected))

	if s.dcache != nil && s.opts.PlacesURL != "" {
		ds := cache.Dataset{Records: result.Records, DistrictLabels: result.DistrictLabels}
		fresh := cache.Freshness{URL: s.opts.PlacesURL, FetchedAt: fetchedAt}
		if err := s.dcache.PutDataset(ctx, s.opts.PlacesURL, ds, fresh); err != nil {
			s.log.Warn("dataset cache write failed", logging.Err(err))
		}
	}

	s.analytics.Emit(ctx, analytics.EventDatasetLoaded, map[string]any{
		"records":  len(result.Records),
		"rejected": result.Rejected,
	})
	return nil
}

// refreshDetached kicks one background refresh, deduplicated per dataset key.
// Completions replace the session dataset wholesale, so the last writer wins.
func (s *Service) refreshDetached() {
	url := s.opts.PlacesURL
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _, _ = s.group.Do(url, func() (interface{}, error) {
			if err := s.refreshOnce(context.Background(), true); err != nil {
				metrics.DatasetRefreshesTotal.WithLabelValues("error").Inc()
				return nil, err
			}
			metrics.DatasetRefreshesTotal.WithLabelValues("ok").Inc()
			return nil, nil
		})
	}()
}

func (s *Service) install(records []place.Record, labels map[string]string, fetchedAt time.Time) {
	s.session.ReplaceDataset(records, labels, fetchedAt)
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	metrics.DatasetRecords.Set(float64(len(records)))
}

func (s *Service) refreshLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshTick(ctx)
		}
	}
}

// refreshTick re-reads the insight sources and kicks a dataset refresh when
// the working dataset has gone stale.
func (s *Service) refreshTick(ctx context.Context) {
	if s.insights != nil {
		s.ReloadInsights(ctx)
		s.reloadBoundaries(ctx)
	}

	fresh := cache.Freshness{URL: s.opts.PlacesURL, FetchedAt: s.session.View().FetchedAt}
	if fresh.Stale(s.opts.FreshnessWindow, s.now()) {
		s.refreshDetached()
	}
}

func (s *Service) watchSources(ctx context.Context) {
	defer s.wg.Done()
	err := s.insights.Watch(ctx, func(string) {
		s.ReloadInsights(ctx)
		s.reloadBoundaries(ctx)
	})
	if err != nil {
		s.log.Warn("source watch unavailable", logging.Err(err))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Insight configuration
// ─────────────────────────────────────────────────────────────────────────────

// ReloadInsights rebuilds the rule registry from the configured source and
// swaps it in atomically.  Every failure falls back to the default
// single-rule registry; the active insight key is reset to the head when it
// vanished from the new document.
func (s *Service) ReloadInsights(ctx context.Context) {
	var doc []byte
	if s.insights != nil {
		var err error
		doc, err = s.insights.FetchInsightDoc(ctx)
		if err != nil {
			s.log.Warn("insight document fetch failed, keeping safe defaults", logging.Err(err))
			doc = nil
		}
	}

	reg := insight.DefaultRegistry()
	if doc != nil {
		var err error
		reg, err = insight.BuildRegistry(doc, s.compiler)
		if err != nil {
			s.log.Warn("insight document rejected, using safe defaults", logging.Err(err))
		}
	}

	for _, r := range reg.Rules() {
		for _, kind := range r.Degradations {
			metrics.RuleDegradedTotal.WithLabelValues(kind).Inc()
		}
	}

	s.mu.Lock()
	s.registry = reg
	s.mu.Unlock()

	if key := s.session.Filters().InsightKey; key != "" {
		if _, ok := reg.Get(key); !ok {
			s.session.SetInsight(insight.AllKey)
		}
	}

	s.log.Info("insight registry loaded",
		logging.Int("rules", reg.Len()),
		logging.Int("degraded", reg.DegradedCount()))
}

func (s *Service) reloadBoundaries(ctx context.Context) {
	if s.insights == nil {
		return
	}
	doc, err := s.insights.FetchBoundaries(ctx)
	if err != nil {
		s.log.Warn("district boundary fetch failed", logging.Err(err))
		return
	}
	s.mu.Lock()
	s.boundaries = doc
	s.mu.Unlock()
}

func (s *Service) resolveRule(key string) insight.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Resolve(key)
}

func (s *Service) currentRegistry() *insight.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

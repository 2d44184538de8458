package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/placescope/placescope/internal/application/explorer"
	"github.com/placescope/placescope/internal/config"
	"github.com/placescope/placescope/internal/domain/place"
	"github.com/placescope/placescope/internal/infrastructure/analytics"
	"github.com/placescope/placescope/internal/infrastructure/cache"
	"github.com/placescope/placescope/internal/infrastructure/insightsource"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/internal/infrastructure/placesapi"
	httpserver "github.com/placescope/placescope/internal/interfaces/http"
	"github.com/placescope/placescope/internal/interfaces/http/handlers"
	"github.com/placescope/placescope/internal/interfaces/http/middleware"
	"github.com/placescope/placescope/pkg/errors"
)

// NewServeCmd creates the serve command, which runs the HTTP service until
// interrupted.
func NewServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the placescope HTTP service",
		Long: "Loads the configuration, connects the upstream sources and the optional\n" +
			"freshness cache, and serves the exploration API until SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if cfg.Sources.PlacesURL == "" {
		return errors.New(errors.ErrCodeBadRequest, "sources.places_url is required to serve")
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The freshness cache is optional: a Redis that is down at startup is
	// logged and skipped, and every load goes straight to the upstream.
	var dcache *cache.RedisCache
	if cfg.Cache.Enabled {
		c, cerr := cache.New(cache.Config{
			Addr:        cfg.Cache.Addr,
			Password:    cfg.Cache.Password,
			DB:          cfg.Cache.DB,
			KeyPrefix:   cfg.Cache.KeyPrefix,
			DialTimeout: cfg.Cache.DialTimeout,
		}, log)
		if cerr != nil {
			log.Warn("freshness cache unavailable, serving without it", logging.Err(cerr))
		} else {
			dcache = c
			defer func() { _ = dcache.Close() }()
		}
	}

	normalizer := place.NewNormalizer(cfg.Dataset.MaxRecords, log)
	client := placesapi.NewClient(placesapi.Config{
		PlacesURL:        cfg.Sources.PlacesURL,
		SimilarURL:       cfg.Sources.SimilarURL,
		Timeout:          cfg.Sources.Timeout,
		UserAgent:        cfg.Sources.UserAgent,
		SimilarCount:     cfg.Similarity.Count,
		SimilarThreshold: cfg.Similarity.Threshold,
	}, normalizer, log)

	source := insightsource.NewSource(insightsource.Config{
		Insights:  cfg.Sources.Insights,
		Districts: cfg.Sources.Districts,
		Timeout:   cfg.Sources.Timeout,
		UserAgent: cfg.Sources.UserAgent,
	}, log)

	var emitter analytics.Emitter = analytics.NopEmitter{}
	if cfg.Analytics.Enabled {
		ke, aerr := analytics.NewKafkaEmitter(analytics.Config{
			Brokers: cfg.Analytics.Brokers,
			Topic:   cfg.Analytics.Topic,
		}, log)
		if aerr != nil {
			log.Warn("analytics emitter unavailable, events disabled", logging.Err(aerr))
		} else {
			emitter = ke
			defer func() { _ = ke.Close() }()
		}
	}

	deps := explorer.Deps{
		Places:     client,
		Similarity: client,
		Insights:   source,
		Analytics:  emitter,
		Logger:     log,
	}
	if dcache != nil {
		deps.Cache = dcache
	}

	svc, err := explorer.New(deps, explorer.Options{
		PlacesURL:       cfg.Sources.PlacesURL,
		FreshnessWindow: cfg.Cache.FreshnessWindow,
		RefreshInterval: cfg.Cache.RefreshInterval,
	})
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if opts.configPath != "" {
		config.Watch(opts.configPath, func(*config.Config) {
			log.Info("configuration file changed, restart to apply",
				logging.String("path", opts.configPath))
		})
	}

	var checkers []handlers.HealthChecker
	if dcache != nil {
		checkers = append(checkers, cacheChecker{cache: dcache})
	}

	routerCfg := httpserver.RouterConfig{
		Explorer:      svc,
		Logger:        log,
		Version:       Version,
		Mode:          cfg.Server.Mode,
		EnableMetrics: cfg.Metrics.Enabled,
		Checkers:      checkers,
	}
	if cfg.Server.RateLimitRPS > 0 {
		limiter := middleware.NewTokenBucketLimiter(
			cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, 5*time.Minute)
		defer limiter.Stop()
		routerCfg.RateLimiter = limiter
	}

	router := httpserver.NewRouter(routerCfg)
	server := httpserver.NewServer(cfg.Server, router, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	if err := server.Stop(context.Background()); err != nil {
		return err
	}
	return <-errCh
}

// cacheChecker reports the Redis connection state on the readiness probe.
type cacheChecker struct {
	cache *cache.RedisCache
}

func (c cacheChecker) Name() string { return "cache" }

func (c cacheChecker) Check(ctx context.Context) error { return c.cache.Ping(ctx) }

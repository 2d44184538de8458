// Package http assembles the gin route tree and the server around it.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/placescope/placescope/internal/application/explorer"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/metrics"
	"github.com/placescope/placescope/internal/interfaces/http/handlers"
	"github.com/placescope/placescope/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the dependencies of the route tree.
type RouterConfig struct {
	Explorer *explorer.Service
	Logger   logging.Logger
	Version  string

	// Mode selects the gin mode: "debug", "release" or "test".
	Mode string

	// EnableMetrics mounts /metrics and the per-request collectors.
	EnableMetrics bool

	// CORS overrides the default open policy when set.
	CORS *middleware.CORSConfig

	// RateLimiter, when set, throttles the /api/v1 group per client.
	// Probe and metrics endpoints are never limited.
	RateLimiter middleware.RateLimiter

	// Checkers annotate the readiness probe.
	Checkers []handlers.HealthChecker
}

// NewRouter builds the complete route tree: global middleware, probe and
// metrics endpoints, and the versioned API group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case gin.DebugMode:
		gin.SetMode(gin.DebugMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	cors := middleware.DefaultCORSConfig()
	if cfg.CORS != nil {
		cors = *cfg.CORS
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.RequestLogging(log, middleware.DefaultLoggingConfig()))
	if cfg.EnableMetrics {
		engine.Use(middleware.Metrics())
	}
	engine.Use(middleware.CORS(cors))

	engine.NoRoute(handlers.NotFound)
	engine.NoMethod(handlers.MethodNotAllowed)

	ready := func() bool { return cfg.Explorer != nil && cfg.Explorer.Ready() }
	handlers.NewHealthHandler(cfg.Version, ready, cfg.Checkers...).Register(engine)

	if cfg.EnableMetrics {
		engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	if cfg.Explorer != nil {
		api := engine.Group("/api/v1")
		if cfg.RateLimiter != nil {
			api.Use(middleware.RateLimit(cfg.RateLimiter))
		}
		handlers.NewExplorerHandler(cfg.Explorer, log).Register(api)
	}

	return engine
}

// Package config defines all configuration structures for placescope.
// No I/O or parsing logic lives here — only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// RateLimitRPS caps the sustained per-client request rate on /api/v1.
	// Zero disables rate limiting.  RateLimitBurst defaults to twice the
	// rate when unset.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// SourcesConfig holds the upstream endpoints the service consumes.  Insights
// and Districts accept either an http(s) URL or a local file path; empty
// values disable the source and fall back to defaults.
type SourcesConfig struct {
	PlacesURL  string        `mapstructure:"places_url"`
	SimilarURL string        `mapstructure:"similar_url"`
	Insights   string        `mapstructure:"insights"`
	Districts  string        `mapstructure:"districts"`
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgent  string        `mapstructure:"user_agent"`
}

// SimilarityConfig holds the query parameters sent to the similarity source.
type SimilarityConfig struct {
	Count     int     `mapstructure:"count"`
	Threshold float64 `mapstructure:"threshold"`
}

// CacheConfig holds Redis freshness-cache parameters.  The cache is optional;
// with Enabled false every load goes straight to the upstream source.
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// DatasetConfig holds working-dataset limits.
type DatasetConfig struct {
	MaxRecords int `mapstructure:"max_records"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
	Output string `mapstructure:"output"` // "stdout" | "stderr" | file path
}

// AnalyticsConfig holds Kafka event-emitter parameters.  Disabled by default;
// the service uses a no-op emitter when Enabled is false.
type AnalyticsConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// MetricsConfig holds Prometheus exposure parameters.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the service.  Every
// infrastructure component and the explorer service read their settings from
// the relevant sub-struct.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	Log        LogConfig        `mapstructure:"log"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.  It
// returns the first error encountered; callers should treat any error as
// fatal and refuse to start.  Sources.PlacesURL is deliberately not required
// here: commands that need it (serve, fetch) check it at startup so that
// offline commands like "rules lint" run without one.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("config: server.rate_limit_rps must be >= 0, got %g", c.Server.RateLimitRPS)
	}

	// Sources
	if c.Sources.Timeout <= 0 {
		return fmt.Errorf("config: sources.timeout must be positive, got %s", c.Sources.Timeout)
	}

	// Similarity
	if c.Similarity.Count < 1 {
		return fmt.Errorf("config: similarity.count must be >= 1, got %d", c.Similarity.Count)
	}
	if c.Similarity.Threshold < 0 || c.Similarity.Threshold > 1 {
		return fmt.Errorf("config: similarity.threshold %g is out of range [0, 1]", c.Similarity.Threshold)
	}

	// Cache
	if c.Cache.Enabled {
		if c.Cache.Addr == "" {
			return fmt.Errorf("config: cache.addr is required when cache is enabled")
		}
		if c.Cache.DB < 0 {
			return fmt.Errorf("config: cache.db must be >= 0, got %d", c.Cache.DB)
		}
		if c.Cache.FreshnessWindow <= 0 {
			return fmt.Errorf("config: cache.freshness_window must be positive, got %s", c.Cache.FreshnessWindow)
		}
		if c.Cache.RefreshInterval <= 0 {
			return fmt.Errorf("config: cache.refresh_interval must be positive, got %s", c.Cache.RefreshInterval)
		}
	}

	// Dataset
	if c.Dataset.MaxRecords < 1 {
		return fmt.Errorf("config: dataset.max_records must be >= 1, got %d", c.Dataset.MaxRecords)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Analytics
	if c.Analytics.Enabled {
		if len(c.Analytics.Brokers) == 0 {
			return fmt.Errorf("config: analytics.brokers must contain at least one broker when analytics is enabled")
		}
		if c.Analytics.Topic == "" {
			return fmt.Errorf("config: analytics.topic is required when analytics is enabled")
		}
	}

	return nil
}

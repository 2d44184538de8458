package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 15 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second

	DefaultSourcesTimeout   = 10 * time.Second
	DefaultSourcesUserAgent = "placescope/1.0"

	DefaultSimilarityCount     = 12
	DefaultSimilarityThreshold = 0.35

	DefaultCacheAddr            = "localhost:6379"
	DefaultCacheKeyPrefix       = "placescope:"
	DefaultCacheDialTimeout     = 5 * time.Second
	DefaultCacheFreshnessWindow = 6 * time.Hour
	DefaultCacheRefreshInterval = 30 * time.Minute

	DefaultDatasetMaxRecords = 20000

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "stdout"

	DefaultAnalyticsTopic = "placescope.events"
)

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults fills zero-value fields in cfg with well-known defaults.
// It must be called after unmarshalling raw config data and before Validate().
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults mutates cfg in place, replacing zero values with defaults.
// Explicitly-set values are never overwritten.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// Server
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.RateLimitRPS > 0 && cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = int(2 * cfg.Server.RateLimitRPS)
		if cfg.Server.RateLimitBurst < 1 {
			cfg.Server.RateLimitBurst = 1
		}
	}

	// Sources
	if cfg.Sources.Timeout == 0 {
		cfg.Sources.Timeout = DefaultSourcesTimeout
	}
	if cfg.Sources.UserAgent == "" {
		cfg.Sources.UserAgent = DefaultSourcesUserAgent
	}

	// Similarity
	if cfg.Similarity.Count == 0 {
		cfg.Similarity.Count = DefaultSimilarityCount
	}
	if cfg.Similarity.Threshold == 0 {
		cfg.Similarity.Threshold = DefaultSimilarityThreshold
	}

	// Cache
	if cfg.Cache.Addr == "" {
		cfg.Cache.Addr = DefaultCacheAddr
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = DefaultCacheKeyPrefix
	}
	if cfg.Cache.DialTimeout == 0 {
		cfg.Cache.DialTimeout = DefaultCacheDialTimeout
	}
	if cfg.Cache.FreshnessWindow == 0 {
		cfg.Cache.FreshnessWindow = DefaultCacheFreshnessWindow
	}
	if cfg.Cache.RefreshInterval == 0 {
		cfg.Cache.RefreshInterval = DefaultCacheRefreshInterval
	}

	// Dataset
	if cfg.Dataset.MaxRecords == 0 {
		cfg.Dataset.MaxRecords = DefaultDatasetMaxRecords
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = DefaultLogOutput
	}

	// Analytics
	if cfg.Analytics.Topic == "" {
		cfg.Analytics.Topic = DefaultAnalyticsTopic
	}
}

package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all service settings.
const envPrefix = "PLACESCOPE"

// envKeys lists every configuration key known to the service.  Viper's
// AutomaticEnv does not surface env-only keys during Unmarshal, so each key
// is bound explicitly; keys set neither in a file nor in the environment
// remain zero and are filled by ApplyDefaults.
var envKeys = []string{
	"server.host", "server.port", "server.mode",
	"server.read_timeout", "server.write_timeout", "server.shutdown_timeout",
	"server.rate_limit_rps", "server.rate_limit_burst",
	"sources.places_url", "sources.similar_url", "sources.insights",
	"sources.districts", "sources.timeout", "sources.user_agent",
	"similarity.count", "similarity.threshold",
	"cache.enabled", "cache.addr", "cache.password", "cache.db",
	"cache.key_prefix", "cache.dial_timeout", "cache.freshness_window",
	"cache.refresh_interval",
	"dataset.max_records",
	"log.level", "log.format", "log.output",
	"analytics.enabled", "analytics.brokers", "analytics.topic",
	"metrics.enabled",
}

// newViper builds a pre-configured Viper instance with the service's standard
// settings: YAML file type, PLACESCOPE_ env prefix, automatic env binding, and
// a key replacer that maps "." → "_" so that nested keys like "cache.addr"
// resolve to "PLACESCOPE_CACHE_ADDR".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges any PLACESCOPE_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.  It returns a fully-populated *Config or a descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from PLACESCOPE_* environment
// variables, with no config file required.  This is the preferred loading
// strategy for containerised deployments.
//
// Environment variable naming convention:
//
//	PLACESCOPE_<SECTION>_<FIELD>   e.g.  PLACESCOPE_CACHE_ADDR, PLACESCOPE_LOG_LEVEL
func LoadFromEnv() (*Config, error) {
	v := newViper()
	// No config file. Rely solely on env vars and defaults.
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as log level; callers are
// responsible for applying only the safe subset of changes at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// If the changed file fails to parse or validate, onChange is not called.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read. Errors are ignored here; callers should call Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

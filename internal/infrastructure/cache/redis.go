package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/placescope/placescope/internal/domain/place"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/internal/infrastructure/monitoring/metrics"
	"github.com/placescope/placescope/pkg/errors"
)

const defaultKeyPrefix = "placescope:"

// Dataset is the cached payload for one source URL: the normalized records
// plus the district label map derived from the same fetch.
type Dataset struct {
	Records        []place.Record    `json:"records"`
	DistrictLabels map[string]string `json:"district_labels,omitempty"`
}

// Config carries the Redis connection parameters for the freshness cache.
type Config struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
}

// RedisCache stores one dataset payload and one freshness record per source
// URL.  Entries carry no TTL; staleness is decided by the freshness record,
// and a full refresh overwrites both keys wholesale.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	log    logging.Logger
}

// New connects to Redis and verifies the connection with a ping bounded by
// the dial timeout.
func New(cfg Config, log logging.Logger) (*RedisCache, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, errors.ErrCodeCache, "redis connection failed")
	}

	log.Info("freshness cache connected",
		logging.String("addr", cfg.Addr),
		logging.Int("db", cfg.DB))
	return &RedisCache{rdb: rdb, prefix: cfg.KeyPrefix, log: log}, nil
}

// GetDataset loads the cached dataset and freshness record for a source URL.
// Transport failures, corrupt payloads, and absent keys are all misses.
func (c *RedisCache) GetDataset(ctx context.Context, url string) (Dataset, Freshness, bool) {
	key := c.datasetKey(url)
	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.CacheOperationsTotal.WithLabelValues("get", "miss").Inc()
		return Dataset{}, Freshness{}, false
	}
	if err != nil {
		c.log.Warn("freshness cache read failed",
			logging.String("key", key),
			logging.Err(err))
		metrics.CacheOperationsTotal.WithLabelValues("get", "error").Inc()
		return Dataset{}, Freshness{}, false
	}

	var ds Dataset
	if err := json.Unmarshal(payload, &ds); err != nil {
		c.log.Warn("corrupt cached dataset, dropping entry",
			logging.String("key", key),
			logging.Err(err))
		metrics.CacheOperationsTotal.WithLabelValues("get", "error").Inc()
		if derr := c.Invalidate(ctx, url); derr != nil {
			c.log.Debug("corrupt entry cleanup failed", logging.Err(derr))
		}
		return Dataset{}, Freshness{}, false
	}

	fresh := c.readFreshness(ctx, url)
	metrics.CacheOperationsTotal.WithLabelValues("get", "hit").Inc()
	return ds, fresh, true
}

// readFreshness loads the freshness record for a URL.  Any failure yields the
// zero record, which reads as stale.
func (c *RedisCache) readFreshness(ctx context.Context, url string) Freshness {
	key := c.freshKey(url)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return Freshness{}
	}
	if err != nil {
		c.log.Warn("freshness record read failed",
			logging.String("key", key),
			logging.Err(err))
		return Freshness{}
	}

	var fresh Freshness
	if err := json.Unmarshal(raw, &fresh); err != nil {
		c.log.Warn("corrupt freshness record, treating as stale",
			logging.String("key", key),
			logging.Err(err))
		return Freshness{}
	}
	if fresh.URL != url {
		return Freshness{}
	}
	return fresh
}

// PutDataset stores the dataset and its freshness record.  Callers treat the
// returned error as a warning; the service proceeds without the cache.
func (c *RedisCache) PutDataset(ctx context.Context, url string, ds Dataset, fresh Freshness) error {
	payload, err := json.Marshal(ds)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues("put", "error").Inc()
		return errors.Wrap(err, errors.ErrCodeCache, "dataset serialization failed")
	}
	meta, err := json.Marshal(fresh)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues("put", "error").Inc()
		return errors.Wrap(err, errors.ErrCodeCache, "freshness serialization failed")
	}

	if err := c.rdb.Set(ctx, c.datasetKey(url), payload, 0).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues("put", "error").Inc()
		return errors.Wrap(err, errors.ErrCodeCache, "dataset cache write failed")
	}
	if err := c.rdb.Set(ctx, c.freshKey(url), meta, 0).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues("put", "error").Inc()
		return errors.Wrap(err, errors.ErrCodeCache, "freshness cache write failed")
	}
	metrics.CacheOperationsTotal.WithLabelValues("put", "ok").Inc()
	return nil
}

// Invalidate removes the dataset and freshness entries for a URL.
func (c *RedisCache) Invalidate(ctx context.Context, url string) error {
	if err := c.rdb.Del(ctx, c.datasetKey(url), c.freshKey(url)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCache, "cache invalidation failed")
	}
	return nil
}

// Ping verifies the Redis connection, for readiness checks.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCache, "redis ping failed")
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

func (c *RedisCache) datasetKey(url string) string {
	return c.prefix + "dataset:" + urlHash(url)
}

func (c *RedisCache) freshKey(url string) string {
	return c.prefix + "fresh:" + urlHash(url)
}

// urlHash keys entries by the SHA-1 of the source URL so arbitrary URLs stay
// within Redis key conventions.
func urlHash(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

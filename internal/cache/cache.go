package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/example/lodging-aggregator/internal/obs"
)

// Class separates the three kinds of cached values. Each class carries its
// own TTL and key namespace.
type Class string

const (
	ClassSearch       Class = "search"
	ClassDetail       Class = "detail"
	ClassAvailability Class = "availability"
)

// TTLs holds the per-class time-to-live configuration.
type TTLs struct {
	Search       time.Duration
	Detail       time.Duration
	Availability time.Duration
}

func (t TTLs) For(c Class) time.Duration {
	switch c {
	case ClassDetail:
		return t.Detail
	case ClassAvailability:
		return t.Availability
	default:
		return t.Search
	}
}

// Store is the pluggable cache backend. A miss is (nil, false, nil); errors
// are backend failures and the ResultCache treats them as misses.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ResultCache wraps a Store with per-class TTLs and a JSON codec. Reads fail
// open: any backend or decode error is reported as a miss so the request
// falls through to a fresh computation. Writes run off the response path.
type ResultCache struct {
	store   Store
	ttls    TTLs
	metrics *obs.Metrics
	logger  *slog.Logger

	// writeTimeout bounds the detached write goroutine.
	writeTimeout time.Duration
}

func NewResultCache(store Store, ttls TTLs, m *obs.Metrics, logger *slog.Logger) *ResultCache {
	return &ResultCache{
		store:        store,
		ttls:         ttls,
		metrics:      m,
		logger:       logger,
		writeTimeout: 2 * time.Second,
	}
}

// Get loads and decodes the entry for (class, key) into dest. It returns
// false on miss, expiry, or any backend failure.
func (c *ResultCache) Get(ctx context.Context, class Class, key string, dest any) bool {
	raw, found, err := c.store.Get(ctx, c.storeKey(class, key))
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss", "class", string(class), "error", err)
		found = false
	}
	if found {
		if err := json.Unmarshal(raw, dest); err != nil {
			c.logger.Warn("cache entry undecodable, treating as miss", "class", string(class), "error", err)
			found = false
		}
	}
	if c.metrics != nil {
		if found {
			c.metrics.IncCacheHit(string(class))
		} else {
			c.metrics.IncCacheMiss(string(class))
		}
	}
	return found
}

// Put stores val under (class, key) with the class TTL. The write happens in
// a detached goroutine: the response path never waits on cache persistence,
// and a lost write just means one extra recomputation later.
func (c *ResultCache) Put(class Class, key string, val any) {
	raw, err := json.Marshal(val)
	if err != nil {
		c.logger.Warn("cache value not serializable", "class", string(class), "error", err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
		defer cancel()
		if err := c.store.Set(ctx, c.storeKey(class, key), raw, c.ttls.For(class)); err != nil {
			c.logger.Warn("cache write failed", "class", string(class), "error", err)
		}
	}()
}

// Invalidate removes the entry for (class, key).
func (c *ResultCache) Invalidate(ctx context.Context, class Class, key string) {
	if err := c.store.Delete(ctx, c.storeKey(class, key)); err != nil {
		c.logger.Warn("cache invalidate failed", "class", string(class), "error", err)
	}
}

func (c *ResultCache) storeKey(class Class, key string) string {
	return string(class) + ":" + key
}

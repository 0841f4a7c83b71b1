package providers

import (
	"antislack/internal/structures"
	"strings"
	"time"
)

// MetricsCacheProvider counts lookups per entry kind. The kind is the key
// prefix before the first '-', so "challenge-<id>" is a challenge lookup.
type MetricsCacheProvider struct {
	inner   CacheProviderInterface
	metrics MetricsProviderInterface
}

func cacheKind(key string) string {
	kind, _, found := strings.Cut(key, "-")
	if !found || kind == "" {
		return "other"
	}
	return kind
}

func (c *MetricsCacheProvider) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	c.metrics.ObserveCacheLookup(cacheKind(key), ok)
	return val, ok
}

func (c *MetricsCacheProvider) Set(key string, value []byte, ttl time.Duration) {
	c.inner.Set(key, value, ttl)
}

// SetIfAbsent backs the block-count debounce: a refused insert means the
// key was already there and counts as a hit.
func (c *MetricsCacheProvider) SetIfAbsent(key string, value []byte, ttl time.Duration) bool {
	stored := c.inner.SetIfAbsent(key, value, ttl)
	c.metrics.ObserveCacheLookup(cacheKind(key), !stored)
	return stored
}

func (c *MetricsCacheProvider) Del(key string) bool {
	return c.inner.Del(key)
}

// NewInstrumentedCacheProvider returns the plain provider when metrics are
// disabled.
func NewInstrumentedCacheProvider(conf *structures.Config, logger Logger, metrics MetricsProviderInterface) CacheProviderInterface {
	inner := NewCacheProvider(conf, logger)
	if !conf.Metrics.Enabled {
		return inner
	}
	return &MetricsCacheProvider{
		inner:   inner,
		metrics: metrics,
	}
}

package providers

import (
	"antislack/internal/structures"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstrumented(t *testing.T) (*MetricsCacheProvider, *mockMetrics) {
	t.Helper()
	conf := &structures.Config{
		Cache:   structures.CacheConfig{Size: 1},
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	metrics := &mockMetrics{}
	cache, ok := NewInstrumentedCacheProvider(conf, &cacheTestLogger{}, metrics).(*MetricsCacheProvider)
	require.True(t, ok)
	return cache, metrics
}

func TestCacheKind(t *testing.T) {
	assert.Equal(t, "challenge", cacheKind("challenge-6f1c"))
	assert.Equal(t, "blocked", cacheKind("blocked-reddit.com-170000000"))
	assert.Equal(t, "undo", cacheKind("undo-abc"))
	assert.Equal(t, "other", cacheKind("plain"))
	assert.Equal(t, "other", cacheKind("-leading"))
}

func TestMetricsCacheProvider_ChallengeLookups(t *testing.T) {
	cache, metrics := newInstrumented(t)

	cache.Set("challenge-1", []byte(`{"answer":7}`), time.Minute)
	_, ok := cache.Get("challenge-1")
	assert.True(t, ok)
	_, ok = cache.Get("challenge-2")
	assert.False(t, ok)

	assert.Equal(t, map[string]int{"challenge/hit": 1, "challenge/miss": 1}, metrics.lookups)
}

func TestMetricsCacheProvider_DebounceCountsRepeatAsHit(t *testing.T) {
	cache, metrics := newInstrumented(t)

	assert.True(t, cache.SetIfAbsent("blocked-x.com-1", []byte{1}, 10*time.Second))
	assert.False(t, cache.SetIfAbsent("blocked-x.com-1", []byte{1}, 10*time.Second))

	assert.Equal(t, 1, metrics.lookups["blocked/miss"])
	assert.Equal(t, 1, metrics.lookups["blocked/hit"])
}

func TestMetricsCacheProvider_DelDoesNotCount(t *testing.T) {
	cache, metrics := newInstrumented(t)

	cache.Set("undo-t", []byte("site-1"), 5*time.Second)
	assert.True(t, cache.Del("undo-t"))
	assert.False(t, cache.Del("undo-t"))
	assert.Empty(t, metrics.lookups)
}

func TestNewInstrumentedCacheProvider_PlainWhenMetricsDisabled(t *testing.T) {
	conf := &structures.Config{Cache: structures.CacheConfig{Size: 1}}
	cache := NewInstrumentedCacheProvider(conf, &cacheTestLogger{}, &mockMetrics{})

	_, instrumented := cache.(*MetricsCacheProvider)
	assert.False(t, instrumented)
}

package providers

import (
	"antislack/internal/structures"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	// ObserveCacheLookup counts a lookup of a cache entry kind (debounce,
	// challenge, undo) as a hit or a miss.
	ObserveCacheLookup(kind string, hit bool)
	ObservePersistenceDuration(duration time.Duration)
	IncBlocks()
	IncAutoRedirects()
	IncBypassAttempts(outcome string)
	IncNuclearCompletions()
	IncRuleSyncs(result string)
	SetInstalledRules(count int)
	SetNuclearActive(active bool)
	Handler() http.Handler
}

type MetricsProvider struct {
	registry            *prometheus.Registry
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheLookups        *prometheus.CounterVec
	persistenceDuration prometheus.Histogram
	blocksTotal         prometheus.Counter
	autoRedirectsTotal  prometheus.Counter
	bypassAttempts      *prometheus.CounterVec
	nuclearCompletions  prometheus.Counter
	ruleSyncs           *prometheus.CounterVec
	installedRules      prometheus.Gauge
	nuclearActive       prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) ObserveCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncBlocks() {
	m.blocksTotal.Inc()
}

func (m *MetricsProvider) IncAutoRedirects() {
	m.autoRedirectsTotal.Inc()
}

func (m *MetricsProvider) IncBypassAttempts(outcome string) {
	m.bypassAttempts.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) IncNuclearCompletions() {
	m.nuclearCompletions.Inc()
}

func (m *MetricsProvider) IncRuleSyncs(result string) {
	m.ruleSyncs.WithLabelValues(result).Inc()
}

func (m *MetricsProvider) SetInstalledRules(count int) {
	m.installedRules.Set(float64(count))
}

func (m *MetricsProvider) SetNuclearActive(active bool) {
	if active {
		m.nuclearActive.Set(1)
		return
	}
	m.nuclearActive.Set(0)
}

func (m *MetricsProvider) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsProvider{
		registry: registry,

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "antislack_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "antislack_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "antislack_cache_lookups_total",
			Help: "TTL cache lookups by entry kind and result",
		}, []string{"kind", "result"}),

		persistenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "antislack_persistence_duration_seconds",
			Help:    "Duration of partition writes in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		blocksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "antislack_blocks_total",
			Help: "Total number of block page views counted",
		}),

		autoRedirectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "antislack_auto_redirects_total",
			Help: "Total number of navigations auto-redirected to a productive URL",
		}),

		bypassAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "antislack_bypass_attempts_total",
			Help: "Bypass challenge attempts by outcome",
		}, []string{"outcome"}),

		nuclearCompletions: factory.NewCounter(prometheus.CounterOpts{
			Name: "antislack_nuclear_completions_total",
			Help: "Nuclear lockdowns that ran to expiry",
		}),

		ruleSyncs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "antislack_rule_syncs_total",
			Help: "Blocking rule synchronisations by result",
		}, []string{"result"}),

		installedRules: factory.NewGauge(prometheus.GaugeOpts{
			Name: "antislack_installed_rules",
			Help: "Number of blocking rules currently installed",
		}),

		nuclearActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "antislack_nuclear_active",
			Help: "1 while a nuclear lockdown is active",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) ObserveCacheLookup(_ string, _ bool)              {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncBlocks()                                       {}
func (n *noopMetrics) IncAutoRedirects()                                {}
func (n *noopMetrics) IncBypassAttempts(_ string)                       {}
func (n *noopMetrics) IncNuclearCompletions()                           {}
func (n *noopMetrics) IncRuleSyncs(_ string)                            {}
func (n *noopMetrics) SetInstalledRules(_ int)                          {}
func (n *noopMetrics) SetNuclearActive(_ bool)                          {}
func (n *noopMetrics) Handler() http.Handler                            { return http.NotFoundHandler() }

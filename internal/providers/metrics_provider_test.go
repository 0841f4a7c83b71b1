package providers

import (
	"antislack/internal/structures"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics_WhenDisabled(t *testing.T) {
	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: false},
	}
	m := NewMetricsProvider(conf)
	_, ok := m.(*noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	// Ensure no-op methods don't panic
	m.IncRequestsTotal("/test", 200)
	m.ObserveRequestDuration("/test", time.Millisecond)
	m.ObserveCacheLookup("challenge", true)
	m.ObservePersistenceDuration(time.Millisecond)
	m.IncBlocks()
	m.IncBypassAttempts("failure")
	m.SetNuclearActive(true)
}

func TestMetricsProvider_WhenEnabled(t *testing.T) {
	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf)
	_, ok := m.(*MetricsProvider)
	assert.True(t, ok, "should return MetricsProvider when enabled")

	// a second provider must not collide on registration
	assert.NotPanics(t, func() { NewMetricsProvider(conf) })
}

func TestMetricsProvider_ExposesDomainCounters(t *testing.T) {
	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf)

	m.IncRequestsTotal("/sites", 200)
	m.ObserveRequestDuration("/sites", 5*time.Millisecond)
	m.IncBlocks()
	m.IncBlocks()
	m.IncAutoRedirects()
	m.IncBypassAttempts("success")
	m.IncNuclearCompletions()
	m.IncRuleSyncs("ok")
	m.SetInstalledRules(7)
	m.SetNuclearActive(true)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "antislack_blocks_total 2")
	assert.Contains(t, body, `antislack_bypass_attempts_total{outcome="success"} 1`)
	assert.Contains(t, body, "antislack_installed_rules 7")
	assert.Contains(t, body, "antislack_nuclear_active 1")
	assert.Contains(t, body, `antislack_rule_syncs_total{result="ok"} 1`)
}

func TestHttpStatusBucket(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, httpStatusBucket(tt.code))
	}
}

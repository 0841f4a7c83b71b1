package controllers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_Idle(t *testing.T) {
	f := newFixture(t)
	f.health.startTime = time.Unix(1000, 0)
	f.health.now = func() time.Time { return time.Unix(1000+3723, 0) }

	rr := call(t, f.health.Health, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	resp := decode[healthResponse](t, rr)
	assert.Equal(t, healthOK, resp.Status)
	assert.Equal(t, "1h2m3s", resp.Uptime)
	assert.InDelta(t, 3723, resp.UptimeSeconds, 0.001)
	assert.Equal(t, 7, resp.Rules)
	assert.Equal(t, nuclearHealth{}, resp.Nuclear)
}

func TestHealth_ReportsLockdown(t *testing.T) {
	f := newFixture(t)
	_, err := f.nuclear.Activate(t.Context(), 4, lockPass)
	require.NoError(t, err)

	resp := decode[healthResponse](t, call(t, f.health.Health, http.MethodGet, "/health", nil))
	assert.Equal(t, healthOK, resp.Status)
	assert.True(t, resp.Nuclear.Active)
	assert.NotEmpty(t, resp.Nuclear.Remaining)
	assert.Empty(t, resp.Nuclear.Error)
}

func TestHealth_DegradedWhenLockdownUnreadable(t *testing.T) {
	f := newFixture(t)
	f.localPart.GetErr = errors.New("disk gone")

	rr := call(t, f.health.Health, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[healthResponse](t, rr)
	assert.Equal(t, healthDegraded, resp.Status)
	assert.True(t, resp.Nuclear.Active)
	assert.NotEmpty(t, resp.Nuclear.Error)
	assert.Empty(t, resp.Nuclear.Remaining)
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rr := call(t, f.health.Health, http.MethodPost, "/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"zero", 0, "0h0m0s"},
		{"bypass window", 15 * time.Minute, "0h15m0s"},
		{"longest lockdown", 24 * time.Hour, "24h0m0s"},
		{"mixed", time.Hour + time.Minute + time.Second, "1h1m1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatDuration(tt.duration))
		})
	}
}

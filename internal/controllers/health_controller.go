package controllers

import (
	"antislack/internal/services"
	"fmt"
	"net/http"
	"time"
)

// RuleCounterInterface reports how many rules are installed.
type RuleCounterInterface interface {
	Count() int
}

const (
	healthOK       = "ok"
	healthDegraded = "degraded"
)

// HealthController answers liveness probes. A lockdown whose record cannot
// be read is reported active, and the daemon as degraded.
type HealthController struct {
	nuclear   services.NuclearServiceInterface
	rules     RuleCounterInterface
	startTime time.Time
	now       func() time.Time
}

type nuclearHealth struct {
	Active    bool   `json:"active"`
	Remaining string `json:"remaining,omitempty"`
	Error     string `json:"error,omitempty"`
}

type healthResponse struct {
	Status        string        `json:"status"`
	Uptime        string        `json:"uptime"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	Rules         int           `json:"rules"`
	Nuclear       nuclearHealth `json:"nuclear"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	status := hc.nuclear.IsActive(r.Context())
	resp := healthResponse{
		Status: healthOK,
		Rules:  hc.rules.Count(),
		Nuclear: nuclearHealth{
			Active: status.Active,
			Error:  status.Error,
		},
	}
	if status.Active && status.Error == "" {
		resp.Nuclear.Remaining = status.Remaining
	}
	if status.Error != "" {
		resp.Status = healthDegraded
	}

	uptime := hc.now().Sub(hc.startTime)
	resp.Uptime = formatDuration(uptime)
	resp.UptimeSeconds = uptime.Seconds()
	writeJSON(w, http.StatusOK, resp)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(nuclear services.NuclearServiceInterface, rules RuleCounterInterface) *HealthController {
	return &HealthController{
		nuclear:   nuclear,
		rules:     rules,
		startTime: time.Now(),
		now:       time.Now,
	}
}

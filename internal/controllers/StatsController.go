package controllers

import (
	"antislack/internal/models"
	"antislack/internal/providers"
	"antislack/internal/services"
	"net/http"
	"time"
)

type StatsController struct {
	logger providers.Logger
	stats  services.StatsServiceInterface
}

func NewStatsController(logger providers.Logger, stats services.StatsServiceInterface) *StatsController {
	return &StatsController{logger: logger, stats: stats}
}

func (sc *StatsController) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sc.stats.Dashboard(r.Context()))
}

func (sc *StatsController) Reset(w http.ResponseWriter, r *http.Request) {
	if err := sc.stats.Reset(r.Context()); err != nil {
		writeError(w, sc.logger, providers.TypeStats, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Archived returns a day that fell out of the rolling window.
func (sc *StatsController) Archived(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
		return
	}
	day, ok := sc.stats.ArchivedDay(date)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, day)
}

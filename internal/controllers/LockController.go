package controllers

import (
	"antislack/internal/providers"
	"antislack/internal/services"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
)

// LockController serves bypass sessions, nuclear mode and the disable lock.
type LockController struct {
	logger  providers.Logger
	bypass  services.BypassServiceInterface
	nuclear services.NuclearServiceInterface
	guard   services.GuardServiceInterface
}

func NewLockController(
	logger providers.Logger,
	bypass services.BypassServiceInterface,
	nuclear services.NuclearServiceInterface,
	guard services.GuardServiceInterface,
) *LockController {
	return &LockController{
		logger:  logger,
		bypass:  bypass,
		nuclear: nuclear,
		guard:   guard,
	}
}

type challengeRequest struct {
	Domain string `json:"domain"`
}

// solveRequest accepts the answer as a number or a numeric string, as typed
// into the block page input.
type solveRequest struct {
	Domain string `json:"domain"`
	ID     string `json:"id"`
	Answer any    `json:"answer"`
}

type activateRequest struct {
	Hours      any    `json:"hours"`
	Passphrase string `json:"passphrase"`
}

type passphraseRequest struct {
	Passphrase string `json:"passphrase"`
	Confirm    string `json:"confirm"`
}

type changePassphraseRequest struct {
	Current string `json:"current"`
	Next    string `json:"next"`
	Confirm string `json:"confirm"`
}

func (lc *LockController) ListBypasses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, lc.bypass.List(r.Context()))
}

func (lc *LockController) RemoveBypass(w http.ResponseWriter, r *http.Request) {
	if err := lc.guard.RemoveBypass(r.Context(), chi.URLParam(r, "domain")); err != nil {
		writeError(w, lc.logger, providers.TypeBypass, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (lc *LockController) RequestChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := lc.guard.RequestChallenge(r.Context(), req.Domain)
	if err != nil {
		writeError(w, lc.logger, providers.TypeBypass, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (lc *LockController) SolveChallenge(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	answer, err := cast.ToIntE(req.Answer)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "answer must be a number"})
		return
	}
	result, err := lc.guard.SolveChallenge(r.Context(), req.Domain, req.ID, answer)
	if err != nil {
		writeError(w, lc.logger, providers.TypeBypass, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (lc *LockController) NuclearStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, lc.nuclear.IsActive(r.Context()))
}

func (lc *LockController) ActivateNuclear(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	hours, err := cast.ToIntE(req.Hours)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "hours must be a number"})
		return
	}
	status, err := lc.guard.ActivateNuclear(r.Context(), hours, req.Passphrase)
	if err != nil {
		writeError(w, lc.logger, providers.TypeNuclear, err)
		return
	}
	writeJSON(w, http.StatusCreated, status)
}

func (lc *LockController) AbortNuclear(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := lc.guard.AbortNuclear(r.Context(), req.Passphrase)
	if err != nil {
		writeError(w, lc.logger, providers.TypeNuclear, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (lc *LockController) EnableLock(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := lc.guard.EnableLock(r.Context(), req.Passphrase, req.Confirm); err != nil {
		writeError(w, lc.logger, providers.TypePost, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (lc *LockController) DisableLock(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := lc.guard.DisableLock(r.Context(), req.Passphrase); err != nil {
		writeError(w, lc.logger, providers.TypePost, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (lc *LockController) ChangeLock(w http.ResponseWriter, r *http.Request) {
	var req changePassphraseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := lc.guard.ChangeLock(r.Context(), req.Current, req.Next, req.Confirm); err != nil {
		writeError(w, lc.logger, providers.TypePost, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package controllers

import (
	"antislack/internal/errs"
	"antislack/internal/providers"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// decodeJSON reads at most maxRequestBodySize bytes of r into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad Request"})
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrImportValidation),
		errors.Is(err, errs.ErrInvalidDomain),
		errors.Is(err, errs.ErrInvalidURL),
		errors.Is(err, errs.ErrInvalidDuration),
		errors.Is(err, errs.ErrInvalidSetting),
		errors.Is(err, errs.ErrWeakPassphrase),
		errors.Is(err, errs.ErrPassphraseDiffer),
		errors.Is(err, errs.ErrChallengeExpired):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrPassphraseMismatch),
		errors.Is(err, errs.ErrNuclearActive),
		errors.Is(err, errs.ErrBypassDisabled):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrAlreadyExists),
		errors.Is(err, errs.ErrNuclearInactive):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError maps err onto a status code. Server side failures are logged
// and their details kept out of the response.
func writeError(w http.ResponseWriter, logger providers.Logger, t providers.TypeEnum, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorf(t, "Request failed: %s", err)
		writeJSON(w, status, errorResponse{Error: "Internal Server Error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

package controllers

import (
	"antislack/internal/backup"
	"antislack/internal/providers"
	"antislack/internal/services"
	"errors"
	"io"
	"net/http"

	"github.com/spf13/cast"
)

// BackupController serves export, import and the remote backup sink.
// ?full=true includes settings and stats, otherwise only the block list.
type BackupController struct {
	logger providers.Logger
	backup services.BackupServiceInterface
}

func NewBackupController(logger providers.Logger, backup services.BackupServiceInterface) *BackupController {
	return &BackupController{logger: logger, backup: backup}
}

type uploadResponse struct {
	Location string `json:"location"`
}

type restoreRequest struct {
	Name string `json:"name"`
}

func fullScope(r *http.Request) bool {
	return cast.ToBool(r.URL.Query().Get("full"))
}

func (bc *BackupController) Export(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, bc.backup.Export(r.Context(), fullScope(r)))
}

func (bc *BackupController) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad Request"})
		return
	}
	result, err := bc.backup.Import(r.Context(), data, fullScope(r))
	if err != nil {
		writeError(w, bc.logger, providers.TypePost, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (bc *BackupController) Upload(w http.ResponseWriter, r *http.Request) {
	location, err := bc.backup.Upload(r.Context())
	if err != nil {
		writeError(w, bc.logger, providers.TypePost, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{Location: location})
}

func (bc *BackupController) Restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := bc.backup.Restore(r.Context(), req.Name)
	if errors.Is(err, backup.ErrBackupNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		writeError(w, bc.logger, providers.TypePost, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

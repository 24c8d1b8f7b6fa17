package handler

import (
	"log/slog"
	"net/http"

	"writeflow/internal/config"
	"writeflow/internal/dialog"
	"writeflow/internal/httputil"
	"writeflow/internal/service/workspace"
)

// BackupHandler serves backup download, restore and reset. Destructive
// routes require ?confirm=true in place of an interactive dialog.
type BackupHandler struct {
	persistence *workspace.Persistence
	store       *workspace.NodeStore
	logger      *slog.Logger
}

// NewBackupHandler creates a new backup handler
func NewBackupHandler(persistence *workspace.Persistence, store *workspace.NodeStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{
		persistence: persistence,
		store:       store,
		logger:      logger,
	}
}

// Export downloads the workspace and settings as one JSON document
// GET /api/backup
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, ts, err := h.persistence.ExportBackup(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondAttachment(w, "application/json", workspace.BackupFilename(ts), data)
}

// Restore replaces the workspace and settings with an uploaded backup
// POST /api/backup/restore?confirm=true
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	data, err := httputil.ReadBody(w, r, config.MaxBackupBytes)
	if err != nil {
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	confirm := dialog.Approve(httputil.QueryBool(r, "confirm"))
	if err := h.persistence.ImportBackup(r.Context(), data, confirm); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"restored": true,
		"nodes":    h.store.Len(),
	})
}

// Reset wipes the workspace, settings and durable storage
// POST /api/reset?confirm=true
func (h *BackupHandler) Reset(w http.ResponseWriter, r *http.Request) {
	confirm := dialog.Approve(httputil.QueryBool(r, "confirm"))
	if err := h.persistence.Reset(r.Context(), confirm); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

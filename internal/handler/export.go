package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"writeflow/internal/httputil"
	"writeflow/internal/service/workspace"
)

// ExportHandler serves zip downloads of a node's subtree
type ExportHandler struct {
	exporter *workspace.Exporter
	logger   *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(exporter *workspace.Exporter, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		exporter: exporter,
		logger:   logger,
	}
}

// Export streams a zip of the node. ?frontmatter=true prefixes each file
// with its metadata as YAML.
// GET /api/nodes/{id}/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	// Buffered so a failure can still become a problem response
	var buf bytes.Buffer
	name, err := h.exporter.Export(r.Context(), id, &buf, workspace.ExportOptions{
		Frontmatter: httputil.QueryBool(r, "frontmatter"),
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondAttachment(w, "application/zip", name, buf.Bytes())
}

package handler

import (
	"log/slog"
	"net/http"

	"writeflow/internal/httputil"
	"writeflow/internal/service/workspace"
)

// TreeHandler handles HTTP requests for tree operations
type TreeHandler struct {
	query  *workspace.TreeQuery
	logger *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(query *workspace.TreeQuery, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{
		query:  query,
		logger: logger,
	}
}

// GetTree returns the nested folder/file tree, folders first
// GET /api/tree
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.query.Tree())
}

// GetMoveTargets lists the folders a node may be moved into
// GET /api/nodes/{id}/move-targets
func (h *TreeHandler) GetMoveTargets(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}
	if _, err := h.query.PathTo(id); err != nil {
		handleError(w, err)
		return
	}

	type target struct {
		ID    *string `json:"id"`
		Label string  `json:"label"`
		Depth int     `json:"depth"`
	}
	choices := h.query.MoveTargets(id)
	out := make([]target, 0, len(choices))
	for _, c := range choices {
		out = append(out, target{ID: c.ID, Label: c.Label, Depth: c.Depth})
	}
	httputil.RespondJSON(w, http.StatusOK, out)
}

package handler

import (
	"log/slog"
	"net/http"

	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"
	"writeflow/internal/httputil"
	"writeflow/internal/service/workspace"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// NodeHandler serves node CRUD, content and metadata edits
type NodeHandler struct {
	store   *workspace.NodeStore
	tracker *workspace.Tracker
	query   *workspace.TreeQuery
	logger  *slog.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(store *workspace.NodeStore, tracker *workspace.Tracker, query *workspace.TreeQuery, logger *slog.Logger) *NodeHandler {
	return &NodeHandler{
		store:   store,
		tracker: tracker,
		query:   query,
		logger:  logger,
	}
}

type createNodeRequest struct {
	ParentID *string         `json:"parentId"`
	Name     string          `json:"name"`
	Type     models.NodeType `json:"type"`
}

func (req createNodeRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Type, validation.Required, validation.In(models.NodeTypeFile, models.NodeTypeFolder)),
	)
}

type updateNodeRequest struct {
	Name     *string                 `json:"name"`
	ParentID models.Optional[string] `json:"parentId"`
}

type contentRequest struct {
	Content string `json:"content"`
}

type activeRequest struct {
	ID *string `json:"id"`
}

// ListNodes returns every node in insertion order
// GET /api/nodes
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.store.List())
}

// CreateNode creates a file or folder
// POST /api/nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.store.Create(req.ParentID, req.Name, req.Type)
	if err != nil {
		handleError(w, err)
		return
	}

	h.respondNode(w, http.StatusCreated, id)
}

// GetNode returns one node
// GET /api/nodes/{id}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}
	h.respondNode(w, http.StatusOK, id)
}

// UpdateNode renames and/or moves a node. parentId follows PATCH semantics:
// absent leaves the parent alone, null moves to the root.
// PATCH /api/nodes/{id}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	var req updateNodeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == nil && !req.ParentID.Present {
		httputil.RespondError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	// Reject a bad name before moving so a failed request changes nothing
	if req.Name != nil {
		if _, err := workspace.NormalizeName(*req.Name); err != nil {
			handleError(w, domain.NewNodeError("rename", id, err))
			return
		}
	}
	if req.ParentID.Present {
		if err := h.store.Move(id, req.ParentID.Value); err != nil {
			handleError(w, err)
			return
		}
	}
	if req.Name != nil {
		if err := h.store.Rename(id, *req.Name); err != nil {
			handleError(w, err)
			return
		}
	}

	h.respondNode(w, http.StatusOK, id)
}

// DeleteNode removes a node and its subtree
// DELETE /api/nodes/{id}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	if err := h.store.Delete(id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateContent replaces a file's text and recounts its words
// PUT /api/nodes/{id}/content
func (h *NodeHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	var req contentRequest
	if !decode(w, r, &req) {
		return
	}

	if _, err := h.tracker.ApplyContent(id, req.Content); err != nil {
		handleError(w, err)
		return
	}
	h.respondNode(w, http.StatusOK, id)
}

// UpdateMetadata merges a metadata patch into a file
// PATCH /api/nodes/{id}/metadata
func (h *NodeHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	var patch models.MetadataPatch
	if !decode(w, r, &patch) {
		return
	}

	if err := h.store.UpdateMetadata(id, patch); err != nil {
		handleError(w, err)
		return
	}
	h.respondNode(w, http.StatusOK, id)
}

// ListChildren returns the direct children of a folder
// GET /api/nodes/{id}/children
func (h *NodeHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}
	if _, err := h.store.Read(id); err != nil {
		handleError(w, err)
		return
	}

	children := make([]*models.FileNode, 0)
	for _, childID := range h.query.ChildrenOf(&id) {
		if child, err := h.store.Read(childID); err == nil {
			children = append(children, child)
		}
	}
	httputil.RespondJSON(w, http.StatusOK, children)
}

// GetGoal reports word-count progress and deadline for a file
// GET /api/nodes/{id}/goal
func (h *NodeHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	goal, err := h.tracker.Goal(id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, goal)
}

// GetActive returns the open file id
// GET /api/active
func (h *NodeHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"activeFileId": h.store.ActiveFileID(),
	})
}

// SetActive opens a file; a null id closes the editor
// PUT /api/active
func (h *NodeHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.store.Open(req.ID); err != nil {
		handleError(w, err)
		return
	}
	h.GetActive(w, r)
}

// GetStats totals files, folders and words
// GET /api/stats
func (h *NodeHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.tracker.Stats())
}

func (h *NodeHandler) respondNode(w http.ResponseWriter, status int, id string) {
	node, err := h.store.Read(id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, status, node)
}

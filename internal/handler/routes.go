package handler

import "net/http"

// Handlers groups every HTTP handler for route registration
type Handlers struct {
	Nodes     *NodeHandler
	Tree      *TreeHandler
	Backup    *BackupHandler
	Export    *ExportHandler
	Import    *ImportHandler
	Settings  *SettingsHandler
	Assistant *AssistantHandler
}

// Register wires all routes onto mux (Go 1.22+ method patterns)
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", HealthCheck)

	// Tree and nodes
	mux.HandleFunc("GET /api/tree", h.Tree.GetTree)
	mux.HandleFunc("GET /api/nodes", h.Nodes.ListNodes)
	mux.HandleFunc("POST /api/nodes", h.Nodes.CreateNode)
	mux.HandleFunc("GET /api/nodes/{id}", h.Nodes.GetNode)
	mux.HandleFunc("PATCH /api/nodes/{id}", h.Nodes.UpdateNode)
	mux.HandleFunc("DELETE /api/nodes/{id}", h.Nodes.DeleteNode)
	mux.HandleFunc("PUT /api/nodes/{id}/content", h.Nodes.UpdateContent)
	mux.HandleFunc("PATCH /api/nodes/{id}/metadata", h.Nodes.UpdateMetadata)
	mux.HandleFunc("GET /api/nodes/{id}/children", h.Nodes.ListChildren)
	mux.HandleFunc("GET /api/nodes/{id}/goal", h.Nodes.GetGoal)
	mux.HandleFunc("GET /api/nodes/{id}/move-targets", h.Tree.GetMoveTargets)
	mux.HandleFunc("GET /api/nodes/{id}/export", h.Export.Export)
	mux.HandleFunc("GET /api/active", h.Nodes.GetActive)
	mux.HandleFunc("PUT /api/active", h.Nodes.SetActive)
	mux.HandleFunc("GET /api/stats", h.Nodes.GetStats)
	mux.HandleFunc("POST /api/import", h.Import.Import)

	// Backup and reset
	mux.HandleFunc("GET /api/backup", h.Backup.Export)
	mux.HandleFunc("POST /api/backup/restore", h.Backup.Restore)
	mux.HandleFunc("POST /api/reset", h.Backup.Reset)

	// Settings
	mux.HandleFunc("GET /api/settings", h.Settings.GetSettings)
	mux.HandleFunc("POST /api/settings/models", h.Settings.CreateModel)
	mux.HandleFunc("PATCH /api/settings/models/{id}", h.Settings.UpdateModel)
	mux.HandleFunc("DELETE /api/settings/models/{id}", h.Settings.DeleteModel)
	mux.HandleFunc("PUT /api/settings/models/{id}/active", h.Settings.ActivateModel)
	mux.HandleFunc("POST /api/settings/models/{id}/test", h.Settings.TestModel)
	mux.HandleFunc("POST /api/settings/templates", h.Settings.CreateTemplate)
	mux.HandleFunc("POST /api/settings/templates/reset", h.Settings.ResetTemplates)
	mux.HandleFunc("PATCH /api/settings/templates/{id}", h.Settings.UpdateTemplate)
	mux.HandleFunc("DELETE /api/settings/templates/{id}", h.Settings.DeleteTemplate)
	mux.HandleFunc("DELETE /api/settings/chat", h.Settings.ClearChat)

	// Assistant
	mux.HandleFunc("POST /api/assistant/stream", h.Assistant.Stream)
}

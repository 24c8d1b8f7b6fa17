package handler

import (
	"log/slog"
	"net/http"
	"strings"

	models "writeflow/internal/domain/models/workspace"
	"writeflow/internal/httputil"
	"writeflow/internal/service/assistant"
	"writeflow/internal/service/settings"
)

// SettingsHandler serves model configs, prompt templates and chat history
type SettingsHandler struct {
	settings  *settings.Service
	assistant *assistant.Service
	logger    *slog.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings *settings.Service, assistant *assistant.Service, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings:  settings,
		assistant: assistant,
		logger:    logger,
	}
}

// maskKey keeps the last four characters of an API key
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func maskModel(m models.ModelConfig) models.ModelConfig {
	m.APIKey = maskKey(m.APIKey)
	return m
}

// GetSettings returns the settings with API keys masked
// GET /api/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	st := h.settings.Get()
	for i := range st.ModelConfigs {
		st.ModelConfigs[i] = maskModel(st.ModelConfigs[i])
	}
	httputil.RespondJSON(w, http.StatusOK, st)
}

// CreateModel adds a model config
// POST /api/settings/models
func (h *SettingsHandler) CreateModel(w http.ResponseWriter, r *http.Request) {
	var req settings.ModelConfigInput
	if !decode(w, r, &req) {
		return
	}

	cfg, err := h.settings.AddModelConfig(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, maskModel(*cfg))
}

// UpdateModel patches a model config
// PATCH /api/settings/models/{id}
func (h *SettingsHandler) UpdateModel(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Model ID")
	if !ok {
		return
	}

	var req settings.ModelConfigPatch
	if !decode(w, r, &req) {
		return
	}

	cfg, err := h.settings.UpdateModelConfig(r.Context(), id, req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, maskModel(*cfg))
}

// DeleteModel removes a model config
// DELETE /api/settings/models/{id}
func (h *SettingsHandler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Model ID")
	if !ok {
		return
	}

	if err := h.settings.DeleteModelConfig(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateModel makes a config the assistant's model
// PUT /api/settings/models/{id}/active
func (h *SettingsHandler) ActivateModel(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Model ID")
	if !ok {
		return
	}

	if err := h.settings.SetActiveModel(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestModel probes a model's endpoint and records the result
// POST /api/settings/models/{id}/test
func (h *SettingsHandler) TestModel(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Model ID")
	if !ok {
		return
	}

	success, message := h.assistant.TestConnection(r.Context(), id)
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": success,
		"message": message,
	})
}

// CreateTemplate adds a custom prompt template
// POST /api/settings/templates
func (h *SettingsHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req settings.TemplateInput
	if !decode(w, r, &req) {
		return
	}

	tmpl, err := h.settings.AddTemplate(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, tmpl)
}

// UpdateTemplate patches a template
// PATCH /api/settings/templates/{id}
func (h *SettingsHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Template ID")
	if !ok {
		return
	}

	var req settings.TemplatePatch
	if !decode(w, r, &req) {
		return
	}

	tmpl, err := h.settings.UpdateTemplate(r.Context(), id, req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tmpl)
}

// DeleteTemplate removes a custom template; built-ins are refused
// DELETE /api/settings/templates/{id}
func (h *SettingsHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Template ID")
	if !ok {
		return
	}

	if err := h.settings.DeleteTemplate(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetTemplates restores the built-in templates
// POST /api/settings/templates/reset
func (h *SettingsHandler) ResetTemplates(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.ResetTemplates(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.settings.Get().PromptTemplates)
}

// ClearChat drops the assistant history
// DELETE /api/settings/chat
func (h *SettingsHandler) ClearChat(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.ClearChatHistory(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

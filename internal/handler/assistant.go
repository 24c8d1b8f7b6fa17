package handler

import (
	"context"
	"log/slog"
	"net/http"

	"writeflow/internal/handler/sse"
	"writeflow/internal/httputil"
	"writeflow/internal/service/assistant"

	"github.com/google/uuid"
)

// AssistantHandler streams assistant answers over SSE
type AssistantHandler struct {
	assistant *assistant.Service
	config    *sse.Config
	logger    *slog.Logger
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(assistant *assistant.Service, config *sse.Config, logger *slog.Logger) *AssistantHandler {
	if config == nil {
		config = sse.DefaultConfig()
	}
	return &AssistantHandler{
		assistant: assistant,
		config:    config,
		logger:    logger,
	}
}

// streamRequest runs either a template over text or raw chat messages
type streamRequest struct {
	TemplateID string              `json:"templateId"`
	Text       string              `json:"text"`
	Messages   []assistant.Message `json:"messages"`
}

// Stream answers with "token" events, then one "done" or "error" event.
// Keep-alive comments are sent while the model is quiet.
// POST /api/assistant/stream
func (h *AssistantHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if !decode(w, r, &req) {
		return
	}
	if req.TemplateID == "" && len(req.Messages) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "templateId or messages is required")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Raw message requests fail before the stream opens when no model is usable
	var events <-chan assistant.StreamEvent
	if req.TemplateID == "" {
		var err error
		events, err = h.assistant.SendChatRequest(ctx, req.Messages)
		if err != nil {
			handleError(w, err)
			return
		}
	}

	requestID := uuid.NewString()
	writer, err := sse.NewWriter(w, requestID)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info("assistant stream started",
		"request_id", requestID,
		"template_id", req.TemplateID,
	)

	keepAlive := sse.NewTickerKeepAlive(h.config.KeepAliveInterval)
	stopped := keepAlive.Start(writer, h.logger)
	defer func() {
		keepAlive.Stop()
		<-stopped
	}()

	go func() {
		// A dead connection ends the request
		<-stopped
		cancel()
	}()

	onToken := func(token string) {
		if err := writer.WriteEvent("token", map[string]string{"token": token}); err != nil {
			h.logger.Info("client disconnected during stream", "request_id", requestID, "error", err)
			cancel()
		}
	}

	var output string
	if req.TemplateID != "" {
		output, err = h.assistant.Run(ctx, req.TemplateID, req.Text, onToken)
	} else {
		output, err = drain(events, onToken)
	}

	if err != nil {
		h.logger.Warn("assistant stream failed", "request_id", requestID, "error", err)
		_ = writer.WriteEvent("error", map[string]string{"message": err.Error()})
		return
	}

	_ = writer.WriteEvent("done", map[string]string{"output": output})
	h.logger.Info("assistant stream finished", "request_id", requestID, "chars", len(output))
}

func drain(events <-chan assistant.StreamEvent, onToken func(string)) (string, error) {
	var out []byte
	for ev := range events {
		if ev.Err != nil {
			return string(out), ev.Err
		}
		out = append(out, ev.Token...)
		onToken(ev.Token)
	}
	return string(out), nil
}

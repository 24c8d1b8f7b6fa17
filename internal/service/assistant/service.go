package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"
)

const systemPrompt = "You are a helpful writing assistant."

// Settings is the slice of the settings service the assistant needs
type Settings interface {
	ActiveModel() (*models.ModelConfig, error)
	ModelConfig(id string) (*models.ModelConfig, error)
	Template(id string) (*models.PromptTemplate, error)
	SetModelConnected(ctx context.Context, id string, connected bool) error
	AddChatMessage(ctx context.Context, action, input, output string) (*models.ChatMessage, error)
}

// Service runs prompt templates against the active model
type Service struct {
	settings  Settings
	providers []Provider
	timeout   time.Duration
	logger    *slog.Logger
}

// NewService creates the assistant. Providers are tried in order; the first
// whose SupportsModel accepts the config wins.
func NewService(settings Settings, timeout time.Duration, logger *slog.Logger, providers ...Provider) *Service {
	return &Service{
		settings:  settings,
		providers: providers,
		timeout:   timeout,
		logger:    logger,
	}
}

// BuildPrompt substitutes text for the template placeholder
func BuildPrompt(template, text string) string {
	out := strings.ReplaceAll(template, "{{text}}", text)
	return strings.ReplaceAll(out, "{text}", text)
}

func (s *Service) providerFor(cfg models.ModelConfig) (Provider, error) {
	for _, p := range s.providers {
		if p.SupportsModel(cfg) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no provider for model %q", domain.ErrValidation, cfg.Model)
}

func (s *Service) activeModel() (*models.ModelConfig, Provider, error) {
	cfg, err := s.settings.ActiveModel()
	if err != nil || cfg == nil {
		return nil, nil, fmt.Errorf("%w: No active model configured. Please add a model in Settings.", domain.ErrValidation)
	}

	provider, err := s.providerFor(*cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.APIKey == "" && !isOffline(provider) {
		return nil, nil, fmt.Errorf("%w: API Key not configured. Please set it in Settings.", domain.ErrValidation)
	}
	return cfg, provider, nil
}

func isOffline(p Provider) bool {
	_, ok := p.(*LoremProvider)
	return ok
}

// SendChatRequest streams a completion from the active model
func (s *Service) SendChatRequest(ctx context.Context, messages []Message) (<-chan StreamEvent, error) {
	cfg, provider, err := s.activeModel()
	if err != nil {
		return nil, err
	}

	s.logger.Debug("assistant request",
		"model", cfg.Model,
		"provider", provider.Name(),
		"messages", len(messages),
	)
	return provider.StreamChat(ctx, *cfg, messages)
}

// Run fills templateID with text, streams the answer to onToken and records
// the exchange in the chat history. The full answer is returned.
func (s *Service) Run(ctx context.Context, templateID, text string, onToken func(string)) (string, error) {
	tmpl, err := s.settings.Template(templateID)
	if err != nil {
		return "", fmt.Errorf("template %q: %w", templateID, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	events, err := s.SendChatRequest(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: BuildPrompt(tmpl.Prompt, text)},
	})
	if err != nil {
		return "", err
	}

	var full strings.Builder
	for ev := range events {
		if ev.Err != nil {
			return full.String(), ev.Err
		}
		full.WriteString(ev.Token)
		if onToken != nil {
			onToken(ev.Token)
		}
	}

	output := full.String()
	if _, err := s.settings.AddChatMessage(ctx, tmpl.Name, text, output); err != nil {
		s.logger.Warn("failed to record chat history", "template", templateID, "error", err)
	}
	return output, nil
}

// TestConnection probes modelID and stores the result in its connected flag
func (s *Service) TestConnection(ctx context.Context, modelID string) (bool, string) {
	cfg, err := s.settings.ModelConfig(modelID)
	if err != nil {
		return false, "Model not found"
	}

	provider, err := s.providerFor(*cfg)
	if err != nil {
		return false, err.Error()
	}
	if cfg.APIKey == "" && !isOffline(provider) {
		return false, "API Key not set"
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	pingErr := provider.Ping(ctx, *cfg)
	if err := s.settings.SetModelConnected(ctx, modelID, pingErr == nil); err != nil {
		s.logger.Warn("failed to store connection state", "model_id", modelID, "error", err)
	}

	if pingErr != nil {
		s.logger.Info("connection test failed", "model_id", modelID, "error", pingErr)
		var statusErr *StatusError
		if errors.As(pingErr, &statusErr) && statusErr.Message == "" {
			return false, fmt.Sprintf("Error: %d", statusErr.Code)
		}
		return false, pingErr.Error()
	}
	return true, "Connected!"
}

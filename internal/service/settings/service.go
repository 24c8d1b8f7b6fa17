package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"writeflow/internal/config"
	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"
	"writeflow/internal/domain/repositories"

	"github.com/google/uuid"
)

// Service owns the settings blob: model configs, prompt templates and chat
// history. Every change is written through to the durable store; a failed
// write is logged and the in-memory state stays authoritative.
type Service struct {
	mu     sync.RWMutex
	state  models.Settings
	kv     repositories.KVStore
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a service holding the defaults until Load is called
func NewService(kv repositories.KVStore, logger *slog.Logger) *Service {
	return &Service{
		state:  Defaults(),
		kv:     kv,
		now:    time.Now,
		logger: logger,
	}
}

// Load reads stored settings. A version mismatch resets the templates to
// the built-ins.
func (s *Service) Load(ctx context.Context) error {
	data, err := s.kv.Get(ctx, config.SettingsKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	var stored models.Settings
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("load settings: %w: %v", domain.ErrInvalidBackupFormat, err)
	}

	if stored.Version != models.SettingsVersion {
		s.logger.Info("settings version changed, resetting templates",
			"stored", stored.Version,
			"current", models.SettingsVersion,
		)
		stored.PromptTemplates = DefaultTemplates()
		stored.Version = models.SettingsVersion
	}
	if stored.ModelConfigs == nil {
		stored.ModelConfigs = []models.ModelConfig{}
	}
	if stored.ChatHistory == nil {
		stored.ChatHistory = []models.ChatMessage{}
	}

	s.mu.Lock()
	s.state = stored
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the current settings
func (s *Service) Get() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// update applies fn under the write lock and persists on success
func (s *Service) update(ctx context.Context, fn func(st *models.Settings) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.state = next
	s.persistLocked(ctx)
	return nil
}

func (s *Service) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.state)
	if err != nil {
		s.logger.Warn("encode settings failed", "error", err)
		return
	}
	if err := s.kv.Put(ctx, config.SettingsKey, data); err != nil {
		s.logger.Warn("save settings failed", "error", err)
	}
}

// Encode returns the stored form of the current settings
func (s *Service) Encode() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.state)
}

func findModel(st *models.Settings, id string) (int, error) {
	for i, m := range st.ModelConfigs {
		if m.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("model config %q: %w", id, domain.ErrNotFound)
}

func findTemplate(st *models.Settings, id string) (int, error) {
	for i, t := range st.PromptTemplates {
		if t.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("template %q: %w", id, domain.ErrNotFound)
}

// AddModelConfig appends a new, enabled, untested config
func (s *Service) AddModelConfig(ctx context.Context, in ModelConfigInput) (*models.ModelConfig, error) {
	if err := validationError(in.Validate()); err != nil {
		return nil, err
	}

	cfg := models.ModelConfig{
		ID:       "model-" + uuid.NewString(),
		Name:     in.Name,
		Provider: in.Provider,
		BaseURL:  in.BaseURL,
		APIKey:   in.APIKey,
		Model:    in.Model,
		Enabled:  true,
	}

	err := s.update(ctx, func(st *models.Settings) error {
		st.ModelConfigs = append(st.ModelConfigs, cfg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("model config added", "id", cfg.ID, "provider", cfg.Provider, "model", cfg.Model)
	return &cfg, nil
}

// UpdateModelConfig merges patch into the config
func (s *Service) UpdateModelConfig(ctx context.Context, id string, patch ModelConfigPatch) (*models.ModelConfig, error) {
	if err := validationError(patch.Validate()); err != nil {
		return nil, err
	}

	var out models.ModelConfig
	err := s.update(ctx, func(st *models.Settings) error {
		i, err := findModel(st, id)
		if err != nil {
			return err
		}
		m := &st.ModelConfigs[i]
		if patch.Name != nil {
			m.Name = *patch.Name
		}
		if patch.Provider != nil {
			m.Provider = *patch.Provider
		}
		if patch.BaseURL != nil {
			m.BaseURL = *patch.BaseURL
		}
		if patch.APIKey != nil {
			m.APIKey = *patch.APIKey
		}
		if patch.Model != nil {
			m.Model = *patch.Model
		}
		if patch.Enabled != nil {
			m.Enabled = *patch.Enabled
		}
		out = *m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteModelConfig removes a config. If it was active, the first remaining
// config becomes active.
func (s *Service) DeleteModelConfig(ctx context.Context, id string) error {
	return s.update(ctx, func(st *models.Settings) error {
		i, err := findModel(st, id)
		if err != nil {
			return err
		}
		st.ModelConfigs = append(st.ModelConfigs[:i], st.ModelConfigs[i+1:]...)

		if st.ActiveModelID != nil && *st.ActiveModelID == id {
			st.ActiveModelID = nil
			if len(st.ModelConfigs) > 0 {
				next := st.ModelConfigs[0].ID
				st.ActiveModelID = &next
			}
		}
		return nil
	})
}

// SetActiveModel selects the config the assistant uses
func (s *Service) SetActiveModel(ctx context.Context, id string) error {
	return s.update(ctx, func(st *models.Settings) error {
		if _, err := findModel(st, id); err != nil {
			return err
		}
		st.ActiveModelID = &id
		return nil
	})
}

// SetModelConnected records the outcome of a connection test
func (s *Service) SetModelConnected(ctx context.Context, id string, connected bool) error {
	return s.update(ctx, func(st *models.Settings) error {
		i, err := findModel(st, id)
		if err != nil {
			return err
		}
		st.ModelConfigs[i].IsConnected = connected
		return nil
	})
}

// SetModelEnabled shows or hides a config in model pickers
func (s *Service) SetModelEnabled(ctx context.Context, id string, enabled bool) error {
	return s.update(ctx, func(st *models.Settings) error {
		i, err := findModel(st, id)
		if err != nil {
			return err
		}
		st.ModelConfigs[i].Enabled = enabled
		return nil
	})
}

// ModelConfig returns one config by id
func (s *Service) ModelConfig(id string) (*models.ModelConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, err := findModel(&s.state, id)
	if err != nil {
		return nil, err
	}
	m := s.state.ModelConfigs[i]
	return &m, nil
}

// ActiveModel returns the selected config, or ErrNotFound if none is set
func (s *Service) ActiveModel() (*models.ModelConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.ActiveModelID == nil {
		return nil, fmt.Errorf("active model: %w", domain.ErrNotFound)
	}
	i, err := findModel(&s.state, *s.state.ActiveModelID)
	if err != nil {
		return nil, err
	}
	m := s.state.ModelConfigs[i]
	return &m, nil
}

// AddTemplate appends a custom template
func (s *Service) AddTemplate(ctx context.Context, in TemplateInput) (*models.PromptTemplate, error) {
	if err := validationError(in.Validate()); err != nil {
		return nil, err
	}

	tmpl := models.PromptTemplate{
		ID:     "custom-" + uuid.NewString(),
		Name:   in.Name,
		Prompt: in.Prompt,
		Icon:   in.Icon,
	}
	err := s.update(ctx, func(st *models.Settings) error {
		st.PromptTemplates = append(st.PromptTemplates, tmpl)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// UpdateTemplate merges patch into a template. Built-ins may be edited.
func (s *Service) UpdateTemplate(ctx context.Context, id string, patch TemplatePatch) (*models.PromptTemplate, error) {
	if err := validationError(patch.Validate()); err != nil {
		return nil, err
	}

	var out models.PromptTemplate
	err := s.update(ctx, func(st *models.Settings) error {
		i, err := findTemplate(st, id)
		if err != nil {
			return err
		}
		t := &st.PromptTemplates[i]
		if patch.Name != nil {
			t.Name = *patch.Name
		}
		if patch.Prompt != nil {
			t.Prompt = *patch.Prompt
		}
		if patch.Icon != nil {
			t.Icon = *patch.Icon
		}
		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTemplate removes a custom template
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	if IsDefaultTemplate(id) {
		return fmt.Errorf("%w: built-in template %q cannot be deleted", domain.ErrValidation, id)
	}

	return s.update(ctx, func(st *models.Settings) error {
		i, err := findTemplate(st, id)
		if err != nil {
			return err
		}
		st.PromptTemplates = append(st.PromptTemplates[:i], st.PromptTemplates[i+1:]...)
		return nil
	})
}

// ResetTemplates restores the built-ins and keeps custom templates after them
func (s *Service) ResetTemplates(ctx context.Context) error {
	return s.update(ctx, func(st *models.Settings) error {
		templates := DefaultTemplates()
		for _, t := range st.PromptTemplates {
			if !IsDefaultTemplate(t.ID) {
				templates = append(templates, t)
			}
		}
		st.PromptTemplates = templates
		return nil
	})
}

// Template returns one template by id
func (s *Service) Template(id string) (*models.PromptTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, err := findTemplate(&s.state, id)
	if err != nil {
		return nil, err
	}
	t := s.state.PromptTemplates[i]
	return &t, nil
}

// AddChatMessage records a completed assistant action
func (s *Service) AddChatMessage(ctx context.Context, action, input, output string) (*models.ChatMessage, error) {
	msg := models.ChatMessage{
		ID:        "msg-" + uuid.NewString(),
		Action:    action,
		Input:     input,
		Output:    output,
		Timestamp: models.NewTimestamp(s.now()),
	}
	err := s.update(ctx, func(st *models.Settings) error {
		st.ChatHistory = append(st.ChatHistory, msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ClearChatHistory drops every recorded message
func (s *Service) ClearChatHistory(ctx context.Context) error {
	return s.update(ctx, func(st *models.Settings) error {
		st.ChatHistory = []models.ChatMessage{}
		return nil
	})
}

// Export returns the settings half of a backup
func (s *Service) Export() models.BackupSettings {
	st := s.Get()
	return models.BackupSettings{
		ModelConfigs:    st.ModelConfigs,
		PromptTemplates: st.PromptTemplates,
		ChatHistory:     st.ChatHistory,
	}
}

// ValidateImport checks backup settings without applying them
func (s *Service) ValidateImport(bs models.BackupSettings) error {
	return validateImported(bs)
}

// Import replaces settings with a backup's. Missing lists fall back to the
// defaults; the active model survives if its id is still present.
func (s *Service) Import(ctx context.Context, bs models.BackupSettings) error {
	if err := validateImported(bs); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidBackupFormat, err)
	}

	err := s.update(ctx, func(st *models.Settings) error {
		st.Version = models.SettingsVersion

		st.ModelConfigs = bs.ModelConfigs
		if st.ModelConfigs == nil {
			st.ModelConfigs = DefaultModelConfigs()
		}
		st.PromptTemplates = bs.PromptTemplates
		if st.PromptTemplates == nil {
			st.PromptTemplates = DefaultTemplates()
		}
		st.ChatHistory = bs.ChatHistory
		if st.ChatHistory == nil {
			st.ChatHistory = []models.ChatMessage{}
		}

		if st.ActiveModelID != nil {
			if _, err := findModel(st, *st.ActiveModelID); err != nil {
				st.ActiveModelID = nil
			}
		}
		if st.ActiveModelID == nil && len(st.ModelConfigs) > 0 {
			first := st.ModelConfigs[0].ID
			st.ActiveModelID = &first
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("settings imported",
		"models", len(bs.ModelConfigs),
		"templates", len(bs.PromptTemplates),
		"messages", len(bs.ChatHistory),
	)
	return nil
}

// Reset restores the defaults
func (s *Service) Reset(ctx context.Context) error {
	return s.update(ctx, func(st *models.Settings) error {
		*st = Defaults()
		return nil
	})
}

package settings

import (
	"fmt"

	"writeflow/internal/config"
	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// ModelConfigInput is what callers supply to add a model config
type ModelConfigInput struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	BaseURL  string `json:"baseUrl"`
	APIKey   string `json:"apiKey"`
	Model    string `json:"model"`
}

func (in ModelConfigInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, config.MaxModelNameLength)),
		validation.Field(&in.BaseURL, validation.Required, is.URL),
		validation.Field(&in.Model, validation.Required),
	)
}

// ModelConfigPatch holds optional updates; nil fields are unchanged
type ModelConfigPatch struct {
	Name     *string `json:"name"`
	Provider *string `json:"provider"`
	BaseURL  *string `json:"baseUrl"`
	APIKey   *string `json:"apiKey"`
	Model    *string `json:"model"`
	Enabled  *bool   `json:"enabled"`
}

func (p ModelConfigPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.RuneLength(1, config.MaxModelNameLength)),
		validation.Field(&p.BaseURL, validation.NilOrNotEmpty, is.URL),
		validation.Field(&p.Model, validation.NilOrNotEmpty),
	)
}

// TemplateInput is what callers supply to add a template
type TemplateInput struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
	Icon   string `json:"icon"`
}

func (in TemplateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, config.MaxModelNameLength)),
		validation.Field(&in.Prompt, validation.Required),
	)
}

// TemplatePatch holds optional updates; nil fields are unchanged
type TemplatePatch struct {
	Name   *string `json:"name"`
	Prompt *string `json:"prompt"`
	Icon   *string `json:"icon"`
}

func (p TemplatePatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.RuneLength(1, config.MaxModelNameLength)),
		validation.Field(&p.Prompt, validation.NilOrNotEmpty),
	)
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

// validateImported checks the settings half of a backup. Ids must be present
// and unique per list; URLs, when set, must parse.
func validateImported(bs models.BackupSettings) error {
	seen := make(map[string]bool)
	for i, m := range bs.ModelConfigs {
		m := m
		err := validation.ValidateStruct(&m,
			validation.Field(&m.ID, validation.Required),
			validation.Field(&m.Name, validation.Required),
			validation.Field(&m.BaseURL, is.URL),
		)
		if err != nil {
			return fmt.Errorf("modelConfigs[%d]: %v", i, err)
		}
		if seen[m.ID] {
			return fmt.Errorf("modelConfigs[%d]: duplicate id %q", i, m.ID)
		}
		seen[m.ID] = true
	}

	seen = make(map[string]bool)
	for i, t := range bs.PromptTemplates {
		t := t
		err := validation.ValidateStruct(&t,
			validation.Field(&t.ID, validation.Required),
			validation.Field(&t.Name, validation.Required),
			validation.Field(&t.Prompt, validation.Required),
		)
		if err != nil {
			return fmt.Errorf("promptTemplates[%d]: %v", i, err)
		}
		if seen[t.ID] {
			return fmt.Errorf("promptTemplates[%d]: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
	}

	for i, msg := range bs.ChatHistory {
		if msg.ID == "" {
			return fmt.Errorf("chatHistory[%d]: id: cannot be blank", i)
		}
	}
	return nil
}

package settings

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"writeflow/internal/config"
	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"
	"writeflow/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestService(t *testing.T) (*Service, *memory.KVStore) {
	t.Helper()
	kv := memory.NewKVStore()
	return NewService(kv, slog.New(slog.NewTextHandler(io.Discard, nil))), kv
}

func strPtr(s string) *string { return &s }

func TestService_Defaults(t *testing.T) {
	svc, _ := newTestService(t)
	st := svc.Get()

	assert.Equal(t, models.SettingsVersion, st.Version)
	require.Len(t, st.ModelConfigs, 1)
	assert.Equal(t, DefaultModelID, *st.ActiveModelID)
	assert.Len(t, st.PromptTemplates, len(DefaultTemplateIDs))
	assert.NotNil(t, st.ChatHistory)
}

func TestService_LoadResetsTemplatesOnVersionChange(t *testing.T) {
	ctx := context.Background()
	svc, kv := newTestService(t)

	stored := `{"version":1,"modelConfigs":[{"id":"m1","name":"Mine","baseUrl":"https://x.example/v1","model":"x"}],` +
		`"activeModelId":"m1","promptTemplates":[{"id":"old","name":"Old","prompt":"{text}"}]}`
	require.NoError(t, kv.Put(ctx, config.SettingsKey, []byte(stored)))

	require.NoError(t, svc.Load(ctx))
	st := svc.Get()
	assert.Equal(t, models.SettingsVersion, st.Version)
	assert.Equal(t, "m1", *st.ActiveModelID)
	assert.Equal(t, "polish", st.PromptTemplates[0].ID)
	assert.NotNil(t, st.ChatHistory)
}

func TestService_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	svc, kv := newTestService(t)
	require.NoError(t, kv.Put(ctx, config.SettingsKey, []byte("{")))

	assert.ErrorIs(t, svc.Load(ctx), domain.ErrInvalidBackupFormat)
}

func TestService_ModelConfigs(t *testing.T) {
	ctx := context.Background()
	svc, kv := newTestService(t)

	t.Run("add validates", func(t *testing.T) {
		_, err := svc.AddModelConfig(ctx, ModelConfigInput{Name: "x", BaseURL: "not a url", Model: "m"})
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = svc.AddModelConfig(ctx, ModelConfigInput{BaseURL: "https://api.example.com/v1", Model: "m"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	cfg, err := svc.AddModelConfig(ctx, ModelConfigInput{
		Name:     "Local",
		Provider: "OpenAI",
		BaseURL:  "https://api.example.com/v1",
		APIKey:   "sk-1",
		Model:    "gpt-4o",
	})
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.IsConnected)

	t.Run("write-through", func(t *testing.T) {
		data, err := kv.Get(ctx, config.SettingsKey)
		require.NoError(t, err)
		assert.Equal(t, int64(2), gjson.GetBytes(data, "modelConfigs.#").Int())
		assert.Equal(t, "sk-1", gjson.GetBytes(data, "modelConfigs.1.apiKey").String())
	})

	t.Run("update", func(t *testing.T) {
		updated, err := svc.UpdateModelConfig(ctx, cfg.ID, ModelConfigPatch{Model: strPtr("gpt-5.1")})
		require.NoError(t, err)
		assert.Equal(t, "gpt-5.1", updated.Model)
		assert.Equal(t, "sk-1", updated.APIKey)

		_, err = svc.UpdateModelConfig(ctx, cfg.ID, ModelConfigPatch{Name: strPtr("")})
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = svc.UpdateModelConfig(ctx, "ghost", ModelConfigPatch{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("connected flag", func(t *testing.T) {
		require.NoError(t, svc.SetModelConnected(ctx, cfg.ID, true))
		m, err := svc.ModelConfig(cfg.ID)
		require.NoError(t, err)
		assert.True(t, m.IsConnected)
	})

	t.Run("active model", func(t *testing.T) {
		require.NoError(t, svc.SetActiveModel(ctx, cfg.ID))
		active, err := svc.ActiveModel()
		require.NoError(t, err)
		assert.Equal(t, cfg.ID, active.ID)

		assert.ErrorIs(t, svc.SetActiveModel(ctx, "ghost"), domain.ErrNotFound)
	})

	t.Run("deleting the active model falls back to the first", func(t *testing.T) {
		require.NoError(t, svc.DeleteModelConfig(ctx, cfg.ID))
		active, err := svc.ActiveModel()
		require.NoError(t, err)
		assert.Equal(t, DefaultModelID, active.ID)
	})

	t.Run("deleting the last model clears the selection", func(t *testing.T) {
		require.NoError(t, svc.DeleteModelConfig(ctx, DefaultModelID))
		_, err := svc.ActiveModel()
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestService_Templates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	custom, err := svc.AddTemplate(ctx, TemplateInput{Name: "Shorten", Prompt: "Shorten: {{text}}"})
	require.NoError(t, err)

	_, err = svc.AddTemplate(ctx, TemplateInput{Name: "Empty"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	edited, err := svc.UpdateTemplate(ctx, "polish", TemplatePatch{Prompt: strPtr("Polish: {{text}}")})
	require.NoError(t, err)
	assert.Equal(t, "Polish", edited.Name)

	assert.ErrorIs(t, svc.DeleteTemplate(ctx, "polish"), domain.ErrValidation)

	require.NoError(t, svc.ResetTemplates(ctx))
	tmpl, err := svc.Template("polish")
	require.NoError(t, err)
	assert.NotEqual(t, "Polish: {{text}}", tmpl.Prompt)

	st := svc.Get()
	last := st.PromptTemplates[len(st.PromptTemplates)-1]
	assert.Equal(t, custom.ID, last.ID, "custom templates survive a reset")

	require.NoError(t, svc.DeleteTemplate(ctx, custom.ID))
	_, err = svc.Template(custom.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ChatHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	msg, err := svc.AddChatMessage(ctx, "Polish", "rough", "smooth")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	require.Len(t, svc.Get().ChatHistory, 1)
	require.NoError(t, svc.ClearChatHistory(ctx))
	assert.Empty(t, svc.Get().ChatHistory)
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("missing lists fall back to defaults", func(t *testing.T) {
		svc, _ := newTestService(t)
		require.NoError(t, svc.Import(ctx, models.BackupSettings{}))

		st := svc.Get()
		assert.Equal(t, DefaultModelID, st.ModelConfigs[0].ID)
		assert.Equal(t, DefaultModelID, *st.ActiveModelID)
		assert.Len(t, st.PromptTemplates, len(DefaultTemplateIDs))
		assert.NotNil(t, st.ChatHistory)
	})

	t.Run("active model follows the imported list", func(t *testing.T) {
		svc, _ := newTestService(t)
		require.NoError(t, svc.Import(ctx, models.BackupSettings{
			ModelConfigs: []models.ModelConfig{{ID: "m9", Name: "Nine", BaseURL: "https://nine.example"}},
		}))
		assert.Equal(t, "m9", *svc.Get().ActiveModelID)
	})

	t.Run("invalid is rejected untouched", func(t *testing.T) {
		svc, _ := newTestService(t)
		err := svc.Import(ctx, models.BackupSettings{
			PromptTemplates: []models.PromptTemplate{{ID: "x", Name: "X"}},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidBackupFormat)
		assert.Len(t, svc.Get().PromptTemplates, len(DefaultTemplateIDs))
	})
}

func TestService_ExportAndReset(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.AddChatMessage(ctx, "Check", "a", "b")
	require.NoError(t, err)

	exported := svc.Export()
	assert.Len(t, exported.ChatHistory, 1)
	assert.Len(t, exported.ModelConfigs, 1)

	require.NoError(t, svc.Reset(ctx))
	assert.Empty(t, svc.Get().ChatHistory)
	assert.Len(t, exported.ChatHistory, 1, "export is a copy")
}

package settings

import (
	models "writeflow/internal/domain/models/workspace"
)

// DefaultModelID is the config every fresh install starts with
const DefaultModelID = "default-deepseek"

// Preset is a known OpenAI-compatible provider
type Preset struct {
	Name     string   `json:"name"`
	Provider string   `json:"provider"`
	BaseURL  string   `json:"baseUrl"`
	Models   []string `json:"models"`
}

// Presets are offered when adding a model config
var Presets = map[string]Preset{
	"chatgpt": {
		Name:     "ChatGPT",
		Provider: "OpenAI",
		BaseURL:  "https://api.openai.com/v1",
		Models:   []string{"gpt-5.1", "gpt-4o"},
	},
	"deepseek": {
		Name:     "DeepSeek",
		Provider: "DeepSeek",
		BaseURL:  "https://api.deepseek.com/v1",
		Models:   []string{"deepseek-chat", "deepseek-reasoner"},
	},
	"moonshot": {
		Name:     "Moonshot",
		Provider: "Moonshot",
		BaseURL:  "https://api.moonshot.cn/v1",
		Models:   []string{"moonshot-v1-8k", "moonshot-v1-32k", "moonshot-v1-128k"},
	},
}

// DefaultTemplateIDs cannot be deleted
var DefaultTemplateIDs = []string{"polish", "check", "expand", "name", "draft", "suggest", "inspire", "research"}

// IsDefaultTemplate reports whether id names a built-in template
func IsDefaultTemplate(id string) bool {
	for _, d := range DefaultTemplateIDs {
		if d == id {
			return true
		}
	}
	return false
}

// DefaultTemplates returns fresh copies of the built-in templates
func DefaultTemplates() []models.PromptTemplate {
	return []models.PromptTemplate{
		{ID: "polish", Name: "Polish", Icon: "📝", Prompt: "请润色并改进以下文本，使其更加流畅优雅，同时保留原意：\n\n{{text}}"},
		{ID: "check", Name: "Check", Icon: "✅", Prompt: "请检查以下文本的语法、逻辑和一致性问题，并提供改进建议：\n\n{{text}}"},
		{ID: "expand", Name: "Expand", Icon: "📖", Prompt: "请扩写以下内容，增加更多细节和描述，使其更加丰富：\n\n{{text}}"},
		{ID: "name", Name: "Name", Icon: "🏷️", Prompt: "根据以下描述，请生成5个合适的名称（可以是角色名、地名、书名等）：\n\n{{text}}"},
		{ID: "draft", Name: "Draft", Icon: "✍️", Prompt: "请根据以下要求创建一个草稿：\n\n{{text}}"},
		{ID: "suggest", Name: "Suggest", Icon: "💡", Prompt: "请针对以下内容提供写作建议和改进方向：\n\n{{text}}"},
		{ID: "inspire", Name: "Inspire", Icon: "✨", Prompt: "基于以下主题或关键词，请提供创意灵感和写作思路：\n\n{{text}}"},
		{ID: "research", Name: "Research", Icon: "🔍", Prompt: "请针对以下主题研究并整理相关资料：\n\n{{text}}"},
	}
}

// DefaultModelConfigs returns the starter model list
func DefaultModelConfigs() []models.ModelConfig {
	return []models.ModelConfig{{
		ID:       DefaultModelID,
		Name:     "DeepSeek Chat",
		Provider: "DeepSeek",
		BaseURL:  "https://api.deepseek.com/v1",
		Model:    "deepseek-chat",
		Enabled:  true,
	}}
}

// Defaults is the settings blob of a fresh install
func Defaults() models.Settings {
	active := DefaultModelID
	return models.Settings{
		Version:         models.SettingsVersion,
		ModelConfigs:    DefaultModelConfigs(),
		ActiveModelID:   &active,
		PromptTemplates: DefaultTemplates(),
		ChatHistory:     []models.ChatMessage{},
	}
}

package workspace

// SettingsVersion is bumped when built-in templates change; stored settings
// with another version get their templates reset.
const SettingsVersion = 2

// ModelConfig describes an OpenAI-compatible chat endpoint.
type ModelConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	BaseURL     string `json:"baseUrl"`
	APIKey      string `json:"apiKey"`
	Model       string `json:"model"`
	IsConnected bool   `json:"isConnected"`
	Enabled     bool   `json:"enabled"`
}

// PromptTemplate is an assistant action. Prompt holds a {{text}} placeholder.
type PromptTemplate struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
	Icon   string `json:"icon,omitempty"`
}

// ChatMessage records one completed assistant action
type ChatMessage struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Timestamp Timestamp `json:"timestamp"`
}

// Settings is the persisted settings blob
type Settings struct {
	Version         int              `json:"version"`
	ModelConfigs    []ModelConfig    `json:"modelConfigs"`
	ActiveModelID   *string          `json:"activeModelId"`
	PromptTemplates []PromptTemplate `json:"promptTemplates"`
	ChatHistory     []ChatMessage    `json:"chatHistory"`
}

// Clone returns a deep copy
func (s Settings) Clone() Settings {
	c := s
	c.ModelConfigs = cloneSlice(s.ModelConfigs)
	c.PromptTemplates = cloneSlice(s.PromptTemplates)
	c.ChatHistory = cloneSlice(s.ChatHistory)
	if s.ActiveModelID != nil {
		v := *s.ActiveModelID
		c.ActiveModelID = &v
	}
	return c
}

// cloneSlice copies s, keeping nil and empty distinct for JSON
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

package assistant

import (
	"context"

	models "writeflow/internal/domain/models/workspace"
)

// Message is one chat message sent to a model
type Message struct {
	Role    string `json:"role"` // system, user or assistant
	Content string `json:"content"`
}

// StreamEvent carries one token, or the error that ended the stream.
// The channel is closed after the last event.
type StreamEvent struct {
	Token string
	Err   error
}

// Provider talks to one family of chat endpoints
type Provider interface {
	Name() string

	// SupportsModel reports whether this provider serves cfg
	SupportsModel(cfg models.ModelConfig) bool

	// StreamChat starts a streaming completion. Errors before the first
	// token (bad status, unreachable host) are returned directly.
	StreamChat(ctx context.Context, cfg models.ModelConfig, messages []Message) (<-chan StreamEvent, error)

	// Ping sends a minimal request to check credentials and reachability
	Ping(ctx context.Context, cfg models.ModelConfig) error
}

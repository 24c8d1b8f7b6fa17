package assistant

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	models "writeflow/internal/domain/models/workspace"

	"github.com/tidwall/gjson"
)

// OpenAIProvider streams from any OpenAI-compatible /chat/completions
// endpoint (OpenAI, DeepSeek, Moonshot, local gateways).
type OpenAIProvider struct {
	client *http.Client
	logger *slog.Logger
}

// NewOpenAIProvider creates a provider using client; nil uses a default client
func NewOpenAIProvider(client *http.Client, logger *slog.Logger) *OpenAIProvider {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIProvider{client: client, logger: logger}
}

func (p *OpenAIProvider) Name() string { return "openai-compatible" }

// SupportsModel accepts everything; it is the fallback provider
func (p *OpenAIProvider) SupportsModel(models.ModelConfig) bool { return true }

type chatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

func (p *OpenAIProvider) post(ctx context.Context, cfg models.ModelConfig, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", cfg.BaseURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}
	return resp, nil
}

// StatusError is a non-2xx answer from the provider
type StatusError struct {
	Code    int
	Message string // error.message from the body, if any
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API Error: %d", e.Code)
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &StatusError{
		Code:    resp.StatusCode,
		Message: gjson.GetBytes(data, "error.message").String(),
	}
}

// StreamChat parses "data: " lines; "[DONE]" and unparseable chunks are skipped
func (p *OpenAIProvider) StreamChat(ctx context.Context, cfg models.ModelConfig, messages []Message) (<-chan StreamEvent, error) {
	resp, err := p.post(ctx, cfg, chatRequest{Model: cfg.Model, Messages: messages, Stream: true})
	if err != nil {
		return nil, err
	}

	events := make(chan StreamEvent, 16)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			data, ok := strings.CutPrefix(line, "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				continue
			}
			if !gjson.Valid(data) {
				p.logger.Debug("skipping invalid stream chunk", "model", cfg.Model, "chunk", data)
				continue
			}

			token := gjson.Get(data, "choices.0.delta.content").String()
			if token == "" {
				continue
			}

			select {
			case events <- StreamEvent{Token: token}:
			case <-ctx.Done():
				events <- StreamEvent{Err: ctx.Err()}
				return
			}
		}

		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			events <- StreamEvent{Err: fmt.Errorf("read stream: %w", err)}
		}
	}()

	return events, nil
}

// Ping sends "Hi" capped at five tokens
func (p *OpenAIProvider) Ping(ctx context.Context, cfg models.ModelConfig) error {
	resp, err := p.post(ctx, cfg, chatRequest{
		Model:     cfg.Model,
		Messages:  []Message{{Role: "user", Content: "Hi"}},
		MaxTokens: 5,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

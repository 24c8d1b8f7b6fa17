package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	models "writeflow/internal/domain/models/workspace"

	loremgen "github.com/bozaro/golorem"
)

// LoremProvider is an offline stand-in that streams lorem ipsum. It serves
// configs whose provider is "lorem" or whose model starts with "lorem-",
// so the assistant can be tried without an API key.
type LoremProvider struct {
	mu        sync.Mutex // generator is not safe for concurrent use
	generator *loremgen.Lorem
	words     int
}

// NewLoremProvider creates a provider that answers with about words words
func NewLoremProvider(words int) *LoremProvider {
	if words <= 0 {
		words = 60
	}
	return &LoremProvider{generator: loremgen.New(), words: words}
}

func (p *LoremProvider) Name() string { return "lorem" }

func (p *LoremProvider) SupportsModel(cfg models.ModelConfig) bool {
	return strings.EqualFold(cfg.Provider, "lorem") || strings.HasPrefix(cfg.Model, "lorem-")
}

// streamDelay maps model names to typing speed.
// lorem-slow: 2 words/s, lorem-fast: 30 words/s, lorem-instant: no delay.
func streamDelay(model string) time.Duration {
	switch {
	case strings.Contains(model, "instant"):
		return 0
	case strings.Contains(model, "slow"):
		return 500 * time.Millisecond
	case strings.Contains(model, "fast"):
		return 33 * time.Millisecond
	default:
		return 100 * time.Millisecond
	}
}

func (p *LoremProvider) text() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sb strings.Builder
	count := 0
	for count < p.words {
		sentence := p.generator.Sentence(5, 15)
		sb.WriteString(sentence)
		sb.WriteString(" ")
		count += len(strings.Fields(sentence))
	}
	return strings.TrimSpace(sb.String())
}

func (p *LoremProvider) StreamChat(ctx context.Context, cfg models.ModelConfig, messages []Message) (<-chan StreamEvent, error) {
	if !p.SupportsModel(cfg) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", cfg.Model)
	}

	words := strings.Fields(p.text())
	delay := streamDelay(cfg.Model)

	events := make(chan StreamEvent, 10)
	go func() {
		defer close(events)

		for i, word := range words {
			token := word
			if i < len(words)-1 {
				token += " "
			}

			select {
			case events <- StreamEvent{Token: token}:
			case <-ctx.Done():
				events <- StreamEvent{Err: ctx.Err()}
				return
			}

			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					events <- StreamEvent{Err: ctx.Err()}
					return
				}
			}
		}
	}()

	return events, nil
}

func (p *LoremProvider) Ping(ctx context.Context, cfg models.ModelConfig) error {
	if !p.SupportsModel(cfg) {
		return fmt.Errorf("model '%s' is not supported by lorem provider", cfg.Model)
	}
	return ctx.Err()
}

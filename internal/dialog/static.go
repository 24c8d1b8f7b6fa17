package dialog

import (
	"context"
	"fmt"

	"writeflow/internal/domain"
)

// Static answers every dialog with pre-decided values. HTTP handlers use it
// with the request's confirm flag; tests use it to script the user.
type Static struct {
	Approve bool

	// Answers are returned by Prompt in order; when exhausted the default is used
	Answers []string

	// Choice is returned by Select/TreeSelect if it matches an option. Empty
	// picks the first option; no match is a cancellation.
	Choice string

	// Asked records every title shown
	Asked []string
}

var _ Dialogs = (*Static)(nil)

// Approve returns a Static that confirms when ok is true
func Approve(ok bool) *Static {
	return &Static{Approve: ok}
}

func (s *Static) Confirm(_ context.Context, title, _ string) (bool, error) {
	s.Asked = append(s.Asked, title)
	return s.Approve, nil
}

func (s *Static) Prompt(_ context.Context, title, _, def string) (string, error) {
	s.Asked = append(s.Asked, title)
	if len(s.Answers) == 0 {
		return def, nil
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	return answer, nil
}

func (s *Static) Select(_ context.Context, title string, options []Option) (string, error) {
	s.Asked = append(s.Asked, title)
	if len(options) == 0 {
		return "", fmt.Errorf("%s: %w: nothing to choose from", title, domain.ErrValidation)
	}
	if s.Choice == "" {
		return options[0].Value, nil
	}
	for _, o := range options {
		if o.Value == s.Choice {
			return o.Value, nil
		}
	}
	return "", fmt.Errorf("%s: %w", title, domain.ErrCancelled)
}

func (s *Static) TreeSelect(ctx context.Context, title string, options []Option) (string, error) {
	return s.Select(ctx, title, options)
}

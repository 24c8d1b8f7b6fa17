package dialog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"writeflow/internal/domain"

	"github.com/charmbracelet/huh"
)

// Terminal renders dialogs as huh forms
type Terminal struct {
	in         io.Reader
	out        io.Writer
	accessible bool
}

// TerminalOption configures a Terminal
type TerminalOption func(*Terminal)

// WithIO overrides stdin/stdout
func WithIO(in io.Reader, out io.Writer) TerminalOption {
	return func(t *Terminal) {
		t.in = in
		t.out = out
	}
}

// WithAccessible switches huh to plain line prompts, for screen readers and
// non-TTY sessions.
func WithAccessible(accessible bool) TerminalOption {
	return func(t *Terminal) { t.accessible = accessible }
}

// NewTerminal creates terminal dialogs
func NewTerminal(opts ...TerminalOption) *Terminal {
	t := &Terminal{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ Dialogs = (*Terminal)(nil)

func (t *Terminal) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).WithAccessible(t.accessible)
	if t.in != nil {
		form = form.WithInput(t.in)
	}
	if t.out != nil {
		form = form.WithOutput(t.out)
	}

	err := form.RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return domain.ErrCancelled
	}
	return err
}

func (t *Terminal) Confirm(ctx context.Context, title, message string) (bool, error) {
	var ok bool
	field := huh.NewConfirm().
		Title(title).
		Description(message).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)

	if err := t.run(ctx, field); err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

func (t *Terminal) Prompt(ctx context.Context, title, message, def string) (string, error) {
	value := def
	field := huh.NewInput().
		Title(title).
		Description(message).
		Value(&value).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("a value is required")
			}
			return nil
		})

	if err := t.run(ctx, field); err != nil {
		return "", err
	}
	return value, nil
}

func (t *Terminal) Select(ctx context.Context, title string, options []Option) (string, error) {
	return t.selectFrom(ctx, title, options, false)
}

func (t *Terminal) TreeSelect(ctx context.Context, title string, options []Option) (string, error) {
	return t.selectFrom(ctx, title, options, true)
}

func (t *Terminal) selectFrom(ctx context.Context, title string, options []Option, indent bool) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("%s: %w: nothing to choose from", title, domain.ErrValidation)
	}

	huhOptions := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		label := o.Label
		if indent && o.Depth > 0 {
			label = strings.Repeat("  ", o.Depth) + label
		}
		huhOptions = append(huhOptions, huh.NewOption(label, o.Value))
	}

	value := options[0].Value
	field := huh.NewSelect[string]().
		Title(title).
		Options(huhOptions...).
		Value(&value)

	if err := t.run(ctx, field); err != nil {
		return "", err
	}
	return value, nil
}

// Package dialog provides the confirm, prompt and select primitives used by
// destructive or interactive workspace operations.
package dialog

import "context"

// Confirmer asks the user to approve an action. A decline is (false, nil).
type Confirmer interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// Prompter asks for a line of text. Cancellation returns domain.ErrCancelled.
type Prompter interface {
	Prompt(ctx context.Context, title, message, def string) (string, error)
}

// Option is one entry of a select. Depth indents the label in a tree select.
type Option struct {
	Value string
	Label string
	Depth int
}

// Selector picks one option and returns its Value. Cancellation returns
// domain.ErrCancelled.
type Selector interface {
	Select(ctx context.Context, title string, options []Option) (string, error)
	TreeSelect(ctx context.Context, title string, options []Option) (string, error)
}

// Dialogs bundles every primitive
type Dialogs interface {
	Confirmer
	Prompter
	Selector
}

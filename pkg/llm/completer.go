// Package llm talks to the text-completion engine behind the assistant.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Completer turns a fully rendered prompt into the model's reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var ErrEmptyResponse = errors.New("completion engine returned no text")

// ErrUnavailable wraps failures to reach or use the completion engine.
type ErrUnavailable struct {
	StatusCode int
	Err        error
}

func (e *ErrUnavailable) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion engine unavailable (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion engine unavailable: %v", e.Err)
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// Temporary reports whether retrying the request may help.
func (e *ErrUnavailable) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

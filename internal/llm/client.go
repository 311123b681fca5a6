// Package llm orchestrates text generation across a cascade of cloud models
// with retry, backoff and fallback, and a locally hosted runtime as the last
// resort.
package llm

import (
	"context"
)

// Completer executes one text-generation request against a named model.
type Completer interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
}

// ModelLister discovers the currently available model identifiers.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

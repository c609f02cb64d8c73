package providers

import (
	"context"
)

// CompletionRequest is the single capability-agnostic primitive every
// provider implements. Prompt construction and output shaping happen in
// the engine; adapters only move text.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// ContentProvider is an interchangeable generative content backend.
type ContentProvider interface {
	ID() string
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

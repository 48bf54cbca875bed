package ports

import (
	"context"

	"github.com/aretw0/conserje/pkg/domain"
)

// Purpose tells a Completer which model class serves the call.
type Purpose string

const (
	// PurposeChat is free-form guest-facing generation.
	PurposeChat Purpose = "chat"
	// PurposeClassify is constrained, structured classification.
	PurposeClassify Purpose = "classify"
)

// CompletionRequest is a single prompt sent to the completion capability.
type CompletionRequest struct {
	System      string
	User        string
	History     []domain.Message
	MaxTokens   int
	Temperature float32
	Purpose     Purpose
	// JSON asks the backend to return a single JSON object.
	JSON bool
}

// Completer completes text given a prompt.
// Implementations attempt each call once; any failure is returned as an error
// (preferably wrapping domain.ErrCapabilityUnavailable) and the caller degrades.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder embeds texts into vectors, one vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelNamer is implemented by capabilities that can report the model they use.
// Caches fold the model name into their keys so vectors of different models never mix.
type ModelNamer interface {
	Model() string
}

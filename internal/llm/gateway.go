// Package llm talks to the text+vision model behind an OpenAI-compatible API.
package llm

import (
	"context"

	"github.com/socratic-tutor/backend/internal/prompt"
)

// Model is one entry of the provider's model list.
type Model struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	OwnedBy     string `json:"owned_by,omitempty"`
}

// Gateway sends a rendered prompt to a model and returns the reply text.
// Calls are never retried here; failures come back as *Error.
type Gateway interface {
	ListModels(ctx context.Context) ([]Model, error)
	Generate(ctx context.Context, p prompt.Rendered, model string) (string, error)
}

// ImageLoader resolves image references found in rendered prompts.
type ImageLoader interface {
	Load(ref string) (data []byte, mimeType string, err error)
}

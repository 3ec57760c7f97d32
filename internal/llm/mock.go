package llm

import (
	"context"
	"sync"

	"github.com/socratic-tutor/backend/internal/prompt"
)

// Mock is a configurable Gateway for tests. Set the function fields to
// control behavior; calls are recorded.
type Mock struct {
	// GenerateFunc is called by Generate. If nil, Generate returns Reply.
	GenerateFunc func(ctx context.Context, p prompt.Rendered, model string) (string, error)

	// ListModelsFunc is called by ListModels. If nil, returns Models.
	ListModelsFunc func(ctx context.Context) ([]Model, error)

	Reply  string
	Models []Model

	mu              sync.Mutex
	Prompts         []prompt.Rendered
	ListModelsCalls int
}

var _ Gateway = (*Mock)(nil)

func (m *Mock) Generate(ctx context.Context, p prompt.Rendered, model string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, p)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, p, model)
	}
	return m.Reply, nil
}

func (m *Mock) ListModels(ctx context.Context) ([]Model, error) {
	m.mu.Lock()
	m.ListModelsCalls++
	m.mu.Unlock()

	if m.ListModelsFunc != nil {
		return m.ListModelsFunc(ctx)
	}
	return m.Models, nil
}

// Calls returns the number of Generate calls so far.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

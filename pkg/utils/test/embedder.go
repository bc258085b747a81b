package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/emunet/pkg/vector"
)

// MockEmbedder is a test embedder that returns predictable embeddings.
// It is safe for concurrent use.
type MockEmbedder struct {
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// FailOnCall causes the nth call (1-based) to Embed to return an error.
	FailOnCall int

	mu    sync.Mutex
	texts []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	call := len(m.texts)
	m.mu.Unlock()

	if m.FailOnCall != 0 && call == m.FailOnCall {
		return nil, fmt.Errorf("%w: mock failure on call %d", vector.ErrEmbedding, call)
	}

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("%w: mock embedding failure for: %s", vector.ErrEmbedding, text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding for any text
	return []float32{0.1, 0.2, 0.3}, nil
}

// Calls returns how many times Embed was called.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.texts)
}

// Texts returns the embedded texts in call order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

func (m *MockEmbedder) Close() error {
	return nil
}

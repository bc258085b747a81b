package testutils

import (
	"context"
	"slices"

	"github.com/papercomputeco/emunet/pkg/llm"
)

// MockCompleter replies from a fixed script and records every conversation
// it was sent.
type MockCompleter struct {
	// Replies are returned in order; an empty string is treated as
	// llm.ErrNoContent. Once exhausted the last reply repeats.
	Replies []string

	// Err, when set, is returned instead of a reply.
	Err error

	calls [][]llm.Message
}

func NewMockCompleter(replies ...string) *MockCompleter {
	return &MockCompleter{Replies: replies}
}

func (m *MockCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	m.calls = append(m.calls, slices.Clone(messages))

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Replies) == 0 {
		return "", llm.ErrNoContent
	}

	i := min(len(m.calls), len(m.Replies)) - 1
	if m.Replies[i] == "" {
		return "", llm.ErrNoContent
	}
	return m.Replies[i], nil
}

// Calls returns the conversations sent to Complete, in call order.
func (m *MockCompleter) Calls() [][]llm.Message {
	return m.calls
}

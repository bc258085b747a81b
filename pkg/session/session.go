// Package session holds the ordered history and id counter of one chat
// session. A Session is owned by a single turn loop and is not safe for
// concurrent use.
package session

import (
	"fmt"
	"slices"

	"github.com/papercomputeco/emunet/pkg/llm"
	"github.com/papercomputeco/emunet/pkg/memory"
)

// Session is the in-memory state of one chat session.
type Session struct {
	// ID identifies the session in stored payloads.
	ID string

	messages []llm.Message
	nextID   uint64
}

// Option configures a new Session.
type Option func(*Session)

// WithSystemPrompt prepends a system message to the history. An empty
// prompt is ignored.
func WithSystemPrompt(prompt string) Option {
	return func(s *Session) {
		if prompt != "" {
			s.messages = append(s.messages, llm.NewSystemMessage(prompt))
		}
	}
}

// New starts an empty session whose first turn is stored at id 0.
func New(id string, opts ...Option) *Session {
	return Resume(id, 0, opts...)
}

// Resume starts an empty session whose first turn is stored at nextID.
func Resume(id string, nextID uint64, opts ...Option) *Session {
	s := &Session{
		ID:     id,
		nextID: nextID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds a message to the end of the history.
func (s *Session) Append(m llm.Message) {
	s.messages = append(s.messages, m)
}

// Messages returns a copy of the history in order.
func (s *Session) Messages() []llm.Message {
	return slices.Clone(s.messages)
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	return len(s.messages)
}

// NextID returns the id the next remembered turn will start at.
func (s *Session) NextID() uint64 {
	return s.nextID
}

// Advance moves the counter to next after a turn was remembered. Only a
// move of exactly one turn's worth of ids is accepted.
func (s *Session) Advance(next uint64) error {
	want := s.nextID + memory.PointsPerTurn
	if next != want {
		return fmt.Errorf("%w: from %d to %d, want %d", ErrInvalidAdvance, s.nextID, next, want)
	}
	s.nextID = next
	return nil
}

package llm

import "context"

// Completer generates a reply for an ordered conversation.
type Completer interface {
	// Complete sends messages in order and returns the generated reply text.
	// It returns an error wrapping ErrNoContent when the service answered
	// without usable content, and one wrapping ErrCompletion for every other
	// failure.
	Complete(ctx context.Context, messages []Message) (string, error)
}

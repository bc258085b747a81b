package llm

import "errors"

var (
	// ErrNoContent is returned when the completion service produced no usable reply.
	ErrNoContent = errors.New("completion returned no content")

	// ErrCompletion is returned when the completion call itself failed.
	ErrCompletion = errors.New("completion failed")
)

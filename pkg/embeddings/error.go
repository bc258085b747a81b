package embeddings

import "errors"

// ErrDimensionMismatch is returned when a provider returns a vector whose
// length differs from the configured dimensionality.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Package embeddings defines the text embedding contract used by the memory
// writer.
package embeddings

import (
	"context"
	"fmt"

	"github.com/papercomputeco/emunet/pkg/vector"
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// CheckDimensions returns an error wrapping both vector.ErrEmbedding and
// ErrDimensionMismatch when want is non-zero and v has a different length.
func CheckDimensions(v []float32, want uint) error {
	if want == 0 || uint(len(v)) == want {
		return nil
	}
	return fmt.Errorf("%w: %w: got %d, want %d", vector.ErrEmbedding, ErrDimensionMismatch, len(v), want)
}

// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/emunet/pkg/embeddings"
	"github.com/papercomputeco/emunet/pkg/embeddings/ollama"
	"github.com/papercomputeco/emunet/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   uint
	APIKey       string
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "openai":
		return openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}

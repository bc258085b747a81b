// Package openai implements pkg/embeddings' Embedder client for OpenAI's
// embeddings endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/emunet/pkg/embeddings"
	"github.com/papercomputeco/emunet/pkg/vector"
)

const (
	// DefaultEmbeddingModel produces 1536-dimensional vectors.
	DefaultEmbeddingModel = "text-embedding-ada-002"

	// DefaultDimensions is the vector length of DefaultEmbeddingModel.
	DefaultDimensions = 1536
)

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	APIKey string

	// BaseURL overrides the API root (e.g. "https://api.openai.com/v1").
	BaseURL string

	// Model defaults to DefaultEmbeddingModel.
	Model string

	// Dimensions, when non-zero, is the vector length every response must have.
	Dimensions uint
}

// Embedder wraps OpenAI's embeddings API.
type Embedder struct {
	client     *goopenai.Client
	model      string
	dimensions uint
}

// NewEmbedder creates a new OpenAI embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		client:     goopenai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrEmbedding, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}

	emb := resp.Data[0].Embedding
	if err := embeddings.CheckDimensions(emb, e.dimensions); err != nil {
		return nil, err
	}

	return emb, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)

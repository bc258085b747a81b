package config

const (
	defaultCompletionProvider  = "openai"
	defaultCompletionTarget    = "https://api.openai.com/v1"
	defaultCompletionModel     = "gpt-4"
	defaultCompletionMaxTokens = 512

	defaultEmbeddingProvider   = "openai"
	defaultEmbeddingTarget     = "https://api.openai.com/v1"
	defaultEmbeddingModel      = "text-embedding-ada-002"
	defaultEmbeddingDimensions = 1536

	// An empty vector target means each provider's own default location.
	defaultVectorProvider   = "qdrant"
	defaultVectorCollection = "emunet"
	defaultVectorDistance   = "cosine"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Completion: CompletionConfig{
			Provider:  defaultCompletionProvider,
			Target:    defaultCompletionTarget,
			Model:     defaultCompletionModel,
			MaxTokens: defaultCompletionMaxTokens,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		VectorStore: VectorStoreConfig{
			Provider:       defaultVectorProvider,
			Collection:     defaultVectorCollection,
			Distance:       defaultVectorDistance,
			ValidateSchema: true,
		},
		Memory: MemoryConfig{
			Enabled:   true,
			ResumeIDs: true,
		},
		Chat: ChatConfig{
			Markdown: false,
		},
	}
}

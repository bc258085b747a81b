package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/emunet/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the EMUNET_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (EMUNET_COMPLETION_MODEL, EMUNET_VECTOR_STORE_TARGET, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("EMUNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the resolved viper values.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Completion: CompletionConfig{
			Provider:  v.GetString("completion.provider"),
			Target:    v.GetString("completion.target"),
			Model:     v.GetString("completion.model"),
			MaxTokens: v.GetUint("completion.max_tokens"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		VectorStore: VectorStoreConfig{
			Provider:       v.GetString("vector_store.provider"),
			Target:         v.GetString("vector_store.target"),
			Collection:     v.GetString("vector_store.collection"),
			Distance:       v.GetString("vector_store.distance"),
			ValidateSchema: v.GetBool("vector_store.validate_schema"),
		},
		Memory: MemoryConfig{
			Enabled:   v.GetBool("memory.enabled"),
			ResumeIDs: v.GetBool("memory.resume_ids"),
		},
		Chat: ChatConfig{
			SystemPrompt: v.GetString("chat.system_prompt"),
			Markdown:     v.GetBool("chat.markdown"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Completion
	v.SetDefault("completion.provider", d.Completion.Provider)
	v.SetDefault("completion.target", d.Completion.Target)
	v.SetDefault("completion.model", d.Completion.Model)
	v.SetDefault("completion.max_tokens", d.Completion.MaxTokens)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)
	v.SetDefault("vector_store.distance", d.VectorStore.Distance)
	v.SetDefault("vector_store.validate_schema", d.VectorStore.ValidateSchema)

	// Memory
	v.SetDefault("memory.enabled", d.Memory.Enabled)
	v.SetDefault("memory.resume_ids", d.Memory.ResumeIDs)

	// Chat
	v.SetDefault("chat.system_prompt", d.Chat.SystemPrompt)
	v.SetDefault("chat.markdown", d.Chat.Markdown)
}

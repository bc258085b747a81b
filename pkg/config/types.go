package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent emunet configuration stored as config.toml
// in the .emunet/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Completion  CompletionConfig  `toml:"completion"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Memory      MemoryConfig      `toml:"memory"`
	Chat        ChatConfig        `toml:"chat"`
}

// CompletionConfig holds chat completion provider settings.
type CompletionConfig struct {
	Provider  string `toml:"provider,omitempty"`
	Target    string `toml:"target,omitempty"`
	Model     string `toml:"model,omitempty"`
	MaxTokens uint   `toml:"max_tokens,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// VectorStoreConfig holds vector store settings. Target is a host:port for
// qdrant and a file path for the embedded providers; an empty path keeps an
// embedded store in memory.
type VectorStoreConfig struct {
	Provider       string `toml:"provider,omitempty"`
	Target         string `toml:"target,omitempty"`
	Collection     string `toml:"collection,omitempty"`
	Distance       string `toml:"distance,omitempty"`
	ValidateSchema bool   `toml:"validate_schema"`
}

// MemoryConfig holds memory writer settings.
type MemoryConfig struct {
	Enabled   bool `toml:"enabled"`
	ResumeIDs bool `toml:"resume_ids"`
}

// ChatConfig holds turn loop settings.
type ChatConfig struct {
	SystemPrompt string `toml:"system_prompt,omitempty"`
	Markdown     bool   `toml:"markdown"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(key string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			v := *field(c)
			if v == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(v), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(key string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"completion.provider":   stringKey(func(c *Config) *string { return &c.Completion.Provider }),
	"completion.target":     stringKey(func(c *Config) *string { return &c.Completion.Target }),
	"completion.model":      stringKey(func(c *Config) *string { return &c.Completion.Model }),
	"completion.max_tokens": uintKey("completion.max_tokens", func(c *Config) *uint { return &c.Completion.MaxTokens }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),

	"vector_store.provider":        stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":          stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection":      stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.distance":        stringKey(func(c *Config) *string { return &c.VectorStore.Distance }),
	"vector_store.validate_schema": boolKey("vector_store.validate_schema", func(c *Config) *bool { return &c.VectorStore.ValidateSchema }),

	"memory.enabled":    boolKey("memory.enabled", func(c *Config) *bool { return &c.Memory.Enabled }),
	"memory.resume_ids": boolKey("memory.resume_ids", func(c *Config) *bool { return &c.Memory.ResumeIDs }),

	"chat.system_prompt": stringKey(func(c *Config) *string { return &c.Chat.SystemPrompt }),
	"chat.markdown":      boolKey("chat.markdown", func(c *Config) *bool { return &c.Chat.Markdown }),
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/emunet/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the list of all supported configuration key names
// in the order of the TOML section layout.
func ValidConfigKeys() []string {
	ordered := []string{
		"completion.provider",
		"completion.target",
		"completion.model",
		"completion.max_tokens",
		"embedding.provider",
		"embedding.target",
		"embedding.model",
		"embedding.dimensions",
		"vector_store.provider",
		"vector_store.target",
		"vector_store.collection",
		"vector_store.distance",
		"vector_store.validate_schema",
		"memory.enabled",
		"memory.resume_ids",
		"chat.system_prompt",
		"chat.markdown",
	}

	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .emunet/ directory.
// If the file does not exist, returns NewDefaultConfig() so callers always receive
// a fully-populated Config. Fields explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills empty string and zero numeric fields in cfg with values
// from NewDefaultConfig(). Booleans are left alone: ParseConfigTOML decodes
// on top of the defaults, so an absent boolean already holds its default.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Completion.Provider == "" {
		cfg.Completion.Provider = defaults.Completion.Provider
	}
	if cfg.Completion.Target == "" {
		cfg.Completion.Target = defaults.Completion.Target
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = defaults.Completion.Model
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = defaults.Completion.MaxTokens
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = defaults.Embedding.Provider
	}
	if cfg.Embedding.Target == "" {
		cfg.Embedding.Target = defaults.Embedding.Target
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaults.Embedding.Model
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = defaults.Embedding.Dimensions
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = defaults.VectorStore.Provider
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = defaults.VectorStore.Collection
	}
	if cfg.VectorStore.Distance == "" {
		cfg.VectorStore.Distance = defaults.VectorStore.Distance
	}
}

// SaveConfig persists the configuration to config.toml in the target .emunet/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "ollama", "local".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "openai":
		return cfg, nil

	case "ollama":
		cfg.Completion = CompletionConfig{
			Provider:  "ollama",
			Target:    "http://localhost:11434",
			Model:     "llama3.2",
			MaxTokens: defaultCompletionMaxTokens,
		}
		cfg.Embedding = EmbeddingConfig{
			Provider:   "ollama",
			Target:     "http://localhost:11434",
			Model:      "nomic-embed-text",
			Dimensions: 768,
		}
		return cfg, nil

	case "local":
		// Ollama models with the sqlite-vec store; no services beyond ollama.
		cfg, _ = PresetConfig("ollama")
		cfg.VectorStore.Provider = "sqlite"
		cfg.VectorStore.Target = ""
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "ollama", "local"}
}

// ParseConfigTOML parses raw TOML bytes into a Config. Keys absent from data
// keep their values from NewDefaultConfig().
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --collection
// on both "emunet chat" and "emunet memory get").
type Flag struct {
	// Name is the long flag name (e.g. "collection").
	Name string

	// Shorthand is the one-letter short flag (e.g. "c"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "vector_store.collection").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddBoolFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagCompletionProv  = "completion-provider"
	FlagCompletionTgt   = "completion-target"
	FlagModel           = "model"
	FlagMaxTokens       = "max-tokens"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagCollection      = "collection"
	FlagDistance        = "distance"
	FlagMemory          = "memory"
	FlagMarkdown        = "markdown"
	FlagSystemPrompt    = "system-prompt"
)

// Flags is the registry shared by every emunet command.
var Flags = FlagSet{
	FlagCompletionProv:  {Name: "completion-provider", ViperKey: "completion.provider", Description: "Completion provider type (openai, ollama)"},
	FlagCompletionTgt:   {Name: "completion-target", ViperKey: "completion.target", Description: "Completion provider URL"},
	FlagModel:           {Name: "model", Shorthand: "m", ViperKey: "completion.model", Description: "Completion model name (e.g., gpt-4, llama3.2)"},
	FlagMaxTokens:       {Name: "max-tokens", ViperKey: "completion.max_tokens", Description: "Maximum tokens per reply"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider type (openai, ollama)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name (e.g., text-embedding-ada-002)"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store provider type (qdrant, chromem, sqlite)"},
	FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store address (host:port for qdrant, file path for chromem and sqlite)"},
	FlagCollection:      {Name: "collection", Shorthand: "c", ViperKey: "vector_store.collection", Description: "Vector collection name"},
	FlagDistance:        {Name: "distance", ViperKey: "vector_store.distance", Description: "Vector distance metric (cosine, dot, euclid)"},
	FlagMemory:          {Name: "memory", ViperKey: "memory.enabled", Description: "Record each turn into the vector store"},
	FlagMarkdown:        {Name: "markdown", ViperKey: "chat.markdown", Description: "Render replies as markdown"},
	FlagSystemPrompt:    {Name: "system-prompt", ViperKey: "chat.system_prompt", Description: "System prompt prepended to every session"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}

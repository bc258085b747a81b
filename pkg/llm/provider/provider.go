// Package provider builds llm.Completer implementations by provider name.
package provider

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/emunet/pkg/llm"
	"github.com/papercomputeco/emunet/pkg/llm/provider/ollama"
	"github.com/papercomputeco/emunet/pkg/llm/provider/openai"
)

const (
	OpenAI = "openai"
	Ollama = "ollama"
)

// SupportedProviders returns the list of completion providers NewCompleter accepts.
func SupportedProviders() []string {
	return []string{OpenAI, Ollama}
}

type NewCompleterOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	MaxTokens    uint
	APIKey       string
	Logger       *slog.Logger
}

func NewCompleter(o *NewCompleterOpts) (llm.Completer, error) {
	switch o.ProviderType {
	case OpenAI:
		return openai.NewCompleter(openai.Config{
			APIKey:    o.APIKey,
			BaseURL:   o.TargetURL,
			Model:     o.Model,
			MaxTokens: int(o.MaxTokens),
		}, o.Logger)
	case Ollama:
		return ollama.NewCompleter(ollama.Config{
			BaseURL:   o.TargetURL,
			Model:     o.Model,
			MaxTokens: int(o.MaxTokens),
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported completion provider: %q (available: %s)", o.ProviderType, strings.Join(SupportedProviders(), ", "))
	}
}

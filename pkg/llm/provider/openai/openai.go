// Package openai implements llm.Completer on top of OpenAI's chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/emunet/pkg/llm"
)

const (
	// DefaultModel is the completion model used when none is configured.
	DefaultModel = "gpt-4"

	// DefaultMaxTokens bounds the reply length when none is configured.
	DefaultMaxTokens = 512
)

// Config holds configuration for the OpenAI completer.
type Config struct {
	// APIKey authenticates against the API.
	APIKey string

	// BaseURL overrides the API root (e.g. "https://api.openai.com/v1").
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel.
	Model string

	// MaxTokens is the reply token budget. Defaults to DefaultMaxTokens.
	MaxTokens int
}

// Completer sends conversations to OpenAI's chat completions endpoint.
type Completer struct {
	client    *goopenai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewCompleter creates a completer from cfg.
func NewCompleter(cfg Config, logger *slog.Logger) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &Completer{
		client:    goopenai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

// Complete implements llm.Completer.
func (c *Completer) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  toChatMessages(messages),
	}

	c.logger.Debug("sending chat completion",
		"model", c.model,
		"message_count", len(messages),
	)

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: openai returned status %d: %s", llm.ErrCompletion, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("%w: %v", llm.ErrCompletion, err)
	}

	if len(resp.Choices) == 0 {
		return "", llm.ErrNoContent
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: finish reason %q", llm.ErrNoContent, resp.Choices[0].FinishReason)
	}

	c.logger.Debug("chat completion received",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return content, nil
}

func toChatMessages(messages []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, goopenai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}

var _ llm.Completer = (*Completer)(nil)

// Package ollama implements llm.Completer for Ollama's native chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/emunet/pkg/llm"
)

const (
	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "llama3.2"
)

// Config holds configuration for the Ollama completer.
type Config struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL.
	BaseURL string

	// Model is the chat model. Defaults to DefaultModel.
	Model string

	// MaxTokens maps to Ollama's num_predict option. Zero leaves it unset.
	MaxTokens int
}

// Completer sends conversations to a local or remote Ollama server.
type Completer struct {
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCompleter creates a completer from cfg.
func NewCompleter(cfg Config, logger *slog.Logger) (*Completer, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Completer{
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			// LLM responses can be slow
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}, nil
}

// Complete implements llm.Completer.
func (c *Completer) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: make([]chatMessage, 0, len(messages)),
		Stream:   false,
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	if c.maxTokens > 0 {
		reqBody.Options = &chatOptions{NumPredict: c.maxTokens}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %v", llm.ErrCompletion, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", llm.ErrCompletion, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending ollama chat request",
		"model", c.model,
		"message_count", len(messages),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %v", llm.ErrCompletion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrCompletion, resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", llm.ErrCompletion, err)
	}

	if strings.TrimSpace(chatResp.Message.Content) == "" {
		return "", fmt.Errorf("%w: done reason %q", llm.ErrNoContent, chatResp.DoneReason)
	}

	return chatResp.Message.Content, nil
}

var _ llm.Completer = (*Completer)(nil)

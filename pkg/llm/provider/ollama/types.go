package ollama

// chatRequest is Ollama's native /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

// chatResponse is the non-streaming /api/chat response.
type chatResponse struct {
	Model      string      `json:"model"`
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason,omitempty"`
	EvalCount  int         `json:"eval_count,omitempty"`
}

package gateway

// OpenAI chat-completions wire types. Only the fields the gateway consumes
// or echoes are modeled; unknown fields are ignored on input.

// Message is one OpenAI-style conversation message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the request body for POST /v1/chat/completions.
// Temperature and MaxTokens are accepted for client compatibility but the
// upstream call is governed by the space's stored config; Stream is
// accepted and ignored.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature"`
	MaxTokens   *int      `json:"max_tokens"`
}

// Choice is one completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token counts. The upstream does not expose them, so they
// are always zero.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is the OpenAI-shaped success envelope.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// APIError mirrors the OpenAI error shape.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ErrorResponse is the OpenAI-shaped error envelope.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

const (
	errTypeInvalidRequest = "invalid_request_error"
	errTypeAPI            = "api_error"
)

package llm

import "context"

// Provider is a text-completion backend. Implementations return the raw
// completion text; interpreting it is the caller's job.
type Provider interface {
	Complete(ctx context.Context, request *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// CompletionRequest contains all parameters needed for a completion
type CompletionRequest struct {
	Model         string
	SystemPrompt  string
	Prompt        string
	ReasoningMode string
	// TraceName groups the call in Langfuse; defaults to the provider name
	TraceName string
	Metadata  map[string]any
}

// Usage is provider-neutral token accounting
type Usage struct {
	InputTokens     int64 `json:"input_tokens"`
	OutputTokens    int64 `json:"output_tokens"`
	ReasoningTokens int64 `json:"reasoning_tokens"`
	TotalTokens     int64 `json:"total_tokens"`
}

// Map returns the usage in the shape logger.LogCompletion expects
func (u Usage) Map() map[string]int {
	return map[string]int{
		"input_tokens":     int(u.InputTokens),
		"output_tokens":    int(u.OutputTokens),
		"reasoning_tokens": int(u.ReasoningTokens),
		"total_tokens":     int(u.TotalTokens),
	}
}

// CompletionResponse contains the result from the LLM
type CompletionResponse struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

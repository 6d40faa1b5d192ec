package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIProvider(t *testing.T) {
	provider := NewOpenAIProvider("test-api-key")
	require.NotNil(t, provider)
	assert.Equal(t, "openai", provider.Name())
	assert.NotNil(t, provider.client)
}

func TestOpenAIProvider_BuildRequestParams(t *testing.T) {
	provider := NewOpenAIProvider("test-key")

	t.Run("prompt and instructions", func(t *testing.T) {
		params := provider.buildRequestParams(&CompletionRequest{
			Model:        "gpt-4o-mini",
			SystemPrompt: "you are a composer",
			Prompt:       "write a melody",
		})
		assert.Equal(t, "gpt-4o-mini", params.Model)
		assert.Equal(t, "you are a composer", params.Instructions.Value)
		require.Len(t, params.Input.OfInputItemList, 1)
		assert.Empty(t, params.Reasoning.Effort)
	})

	t.Run("reasoning only for models that support it", func(t *testing.T) {
		params := provider.buildRequestParams(&CompletionRequest{
			Model:         "gpt-5-mini",
			Prompt:        "write a melody",
			ReasoningMode: "high",
		})
		assert.Equal(t, responses.ReasoningEffortHigh, params.Reasoning.Effort)
		assert.False(t, params.Instructions.Valid())
	})
}

func TestReasoningEffort(t *testing.T) {
	assert.Equal(t, responses.ReasoningEffortLow, reasoningEffort(""))
	assert.Equal(t, responses.ReasoningEffortMedium, reasoningEffort("medium"))
	assert.Equal(t, responses.ReasoningEffortHigh, reasoningEffort("high"))
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_1",
			"object": "response",
			"created_at": 1700000000,
			"model": "gpt-4o-mini",
			"status": "completed",
			"output": [{
				"type": "message",
				"id": "msg_1",
				"status": "completed",
				"role": "assistant",
				"content": [{"type": "output_text", "text": "  [{\"note\":\"C4\",\"time\":0,\"duration\":0.5,\"velocity\":0.8}]\n", "annotations": []}]
			}],
			"usage": {
				"input_tokens": 12,
				"input_tokens_details": {"cached_tokens": 0},
				"output_tokens": 30,
				"output_tokens_details": {"reasoning_tokens": 0},
				"total_tokens": 42
			}
		}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("sk-test", option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	resp, err := provider.Complete(context.Background(), &CompletionRequest{
		Model:  "gpt-4o-mini",
		Prompt: "write a melody",
	})
	require.NoError(t, err)

	assert.Equal(t, `[{"note":"C4","time":0,"duration":0.5,"velocity":0.8}]`, resp.Text)
	assert.Equal(t, int64(12), resp.Usage.InputTokens)
	assert.Equal(t, int64(42), resp.Usage.TotalTokens)
	assert.Equal(t, "gpt-4o-mini", received["model"])
}

func TestOpenAIProvider_CompleteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("sk-test", option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	_, err := provider.Complete(context.Background(), &CompletionRequest{Model: "gpt-4o-mini", Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai request failed")
}

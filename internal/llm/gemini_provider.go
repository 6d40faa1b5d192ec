package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Conceptual-Machines/midigen-api/internal/logger"
	"github.com/Conceptual-Machines/midigen-api/internal/observability"
	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const geminiUserRole = "user"

// GeminiProvider implements the Provider interface using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// Complete sends one prompt and returns the first candidate's text
func (p *GeminiProvider) Complete(ctx context.Context, request *CompletionRequest) (*CompletionResponse, error) {
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, "gemini.complete")
	defer transaction.Finish()
	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameGemini)

	trace := observability.GetClient().StartTrace(ctx, traceName(request, providerNameGemini), request.Metadata)
	defer trace.Finish()
	generation := trace.Generation("gemini.complete", nil)
	defer generation.Finish()

	contents, config := p.buildRequest(request)

	span := transaction.StartChild("gemini.api_call")
	result, err := p.client.Models.GenerateContent(ctx, request.Model, contents, config)
	span.Finish()

	if err != nil {
		transaction.SetTag("success", "false")
		generation.SetLevel("ERROR")
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	text := strings.TrimSpace(candidateText(result))
	usage := geminiUsage(result)

	generation.LogCompletion(request.Model, request.Prompt, text, observability.CompletionUsage{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  usage.TotalTokens,
	}, nil)
	logger.LogCompletion(ctx, request.Model, time.Since(startTime), usage.Map(), logger.Fields{
		"provider":      providerNameGemini,
		"output_length": len(text),
	})

	transaction.SetTag("success", "true")
	return &CompletionResponse{Text: text, Model: request.Model, Usage: usage}, nil
}

func (p *GeminiProvider) buildRequest(request *CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := []*genai.Content{{
		Role:  geminiUserRole,
		Parts: []*genai.Part{{Text: request.Prompt}},
	}}

	config := &genai.GenerateContentConfig{}
	if request.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: request.SystemPrompt}},
		}
	}
	return contents, config
}

// candidateText joins the text parts of the first candidate
func candidateText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	candidate := result.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func geminiUsage(result *genai.GenerateContentResponse) Usage {
	if result == nil || result.UsageMetadata == nil {
		return Usage{}
	}
	md := result.UsageMetadata
	return Usage{
		InputTokens:     int64(md.PromptTokenCount),
		OutputTokens:    int64(md.CandidatesTokenCount),
		ReasoningTokens: int64(md.ThoughtsTokenCount),
		TotalTokens:     int64(md.TotalTokenCount),
	}
}

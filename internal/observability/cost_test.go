package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPricingFor(t *testing.T) {
	tests := []struct {
		model    string
		expected string
	}{
		{"gpt-4o", "gpt-4o"},
		{"gpt-4o-mini", "gpt-4o-mini"},
		{"gpt-4o-mini-2024-07-18", "gpt-4o-mini"},
		{"gemini-2.5-flash-lite", "gemini-2.5-flash"},
		{"something-else", defaultPricingModel},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, PricingTable[tt.expected], PricingFor(tt.model))
		})
	}
}

func TestCalculateCost(t *testing.T) {
	cost := CalculateCost("gpt-4o-mini", 1000, 2000)
	assert.InDelta(t, 0.00015+2*0.0006, cost, 1e-12)
	assert.Equal(t, 0.0, CalculateCost("gpt-4o", 0, 0))
}

func TestFormatCost(t *testing.T) {
	assert.Equal(t, "$0.001350", FormatCost(0.00135))
}

func TestDisabledClientIsNoop(t *testing.T) {
	client := GetClient()
	assert.False(t, client.IsEnabled())

	trace := client.StartTrace(t.Context(), "test", nil)
	assert.False(t, trace.IsEnabled())

	gen := trace.Generation("completion", nil)
	assert.NotPanics(t, func() {
		gen.LogCompletion("gpt-4o", "prompt", "output", CompletionUsage{InputTokens: 1}, nil)
		gen.SetLevel("ERROR")
		gen.Finish()
		trace.Finish()
	})
}

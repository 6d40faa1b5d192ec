package observability

import (
	"strconv"
	"strings"
)

const (
	tokensPerKilo       = 1000.0
	costFormatPrecision = 6
	defaultPricingModel = "gpt-4o-mini"
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // USD
	OutputPricePer1K float64 // USD
}

// PricingTable contains pricing per model family; lookups match on the
// longest prefix so dated snapshots ("gpt-4o-mini-2024-07-18") resolve.
var PricingTable = map[string]ModelPricing{
	"gpt-5.1":          {InputPricePer1K: 0.00125, OutputPricePer1K: 0.01},
	"gpt-5-mini":       {InputPricePer1K: 0.00025, OutputPricePer1K: 0.002},
	"gpt-4o":           {InputPricePer1K: 0.0025, OutputPricePer1K: 0.01},
	"gpt-4o-mini":      {InputPricePer1K: 0.00015, OutputPricePer1K: 0.0006},
	"gpt-4.1-mini":     {InputPricePer1K: 0.0004, OutputPricePer1K: 0.0016},
	"gemini-2.5-flash": {InputPricePer1K: 0.0003, OutputPricePer1K: 0.0025},
	"gemini-2.5-pro":   {InputPricePer1K: 0.00125, OutputPricePer1K: 0.01},
}

// PricingFor returns the pricing entry for a model, falling back to gpt-4o-mini
func PricingFor(model string) ModelPricing {
	best := ""
	for name := range PricingTable {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return PricingTable[defaultPricingModel]
	}
	return PricingTable[best]
}

// CalculateCost returns the USD cost of a completion. Reasoning tokens are
// billed as output tokens and are already included in outputTokens.
func CalculateCost(model string, inputTokens, outputTokens int64) float64 {
	pricing := PricingFor(model)
	inputCost := (float64(inputTokens) / tokensPerKilo) * pricing.InputPricePer1K
	outputCost := (float64(outputTokens) / tokensPerKilo) * pricing.OutputPricePer1K
	return inputCost + outputCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}

package model

import (
	"github.com/cloudwego/eino/schema"
)

// Pricing defines USD cost per 1M tokens for input/output.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// defaultPricing provides hardcoded USD pricing per 1M tokens (text tokens).
var defaultPricing = map[string]Pricing{
	// Gemini standard text pricing.
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
}

// ResolvePricing returns hardcoded pricing for a model, zero if unknown.
func ResolvePricing(model string) Pricing {
	p, ok := defaultPricing[model]
	if !ok {
		return Pricing{}
	}
	return p
}

// TurnCost accumulates USD cost across the model calls of a single turn.
// A turn can hit the classifier model and the response model once each,
// plus extra classifier calls on retried decision cycles.
type TurnCost struct {
	InputUSD  float64
	OutputUSD float64
	Calls     int
}

// Add folds one call's token usage into the running turn total.
func (c *TurnCost) Add(usage *schema.TokenUsage, p Pricing) {
	if usage == nil {
		return
	}
	c.InputUSD += p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0
	c.OutputUSD += p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0
	c.Calls++
}

// Total returns the combined USD cost of the turn.
func (c *TurnCost) Total() float64 {
	return c.InputUSD + c.OutputUSD
}

// Package cost attributes USD cost to LLM token usage.
package cost

import "strings"

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Rates maps a model or deployment name to its pricing.
type Rates map[string]ModelRate

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates. Overrides replace
// the rate of any model they name.
func NewCalculator(rates Rates, overrides ...Rates) *Calculator {
	merged := make(Rates, len(rates))
	for k, v := range rates {
		merged[strings.ToLower(k)] = v
	}
	for _, o := range overrides {
		for k, v := range o {
			merged[strings.ToLower(k)] = v
		}
	}
	return &Calculator{rates: merged}
}

// Rate returns the pricing for model. Unknown models fall back to the
// longest known prefix, so dated snapshots share their family's rate.
func (c *Calculator) Rate(model string) (ModelRate, bool) {
	model = strings.ToLower(model)
	if r, ok := c.rates[model]; ok {
		return r, true
	}
	var best string
	for k := range c.rates {
		if strings.HasPrefix(model, k) && len(k) > len(best) {
			best = k
		}
	}
	if best == "" {
		return ModelRate{}, false
	}
	return c.rates[best], true
}

// Tokens computes the cost of one call. Returns 0 for unknown models.
func (c *Calculator) Tokens(model string, input, output int) float64 {
	rate, ok := c.Rate(model)
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		"gpt-4o":                     {Input: 2.50, Output: 10.00},
		"gpt-4o-mini":                {Input: 0.15, Output: 0.60},
		"gpt-4.1":                    {Input: 2.00, Output: 8.00},
		"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		"claude-opus-4-6":            {Input: 15.00, Output: 75.00},
		"gemini-2.5-flash":           {Input: 0.30, Output: 2.50},
		"gemini-2.5-pro":             {Input: 1.25, Output: 10.00},
	}
}

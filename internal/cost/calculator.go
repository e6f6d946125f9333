package cost

import (
	"github.com/rotisserie/eris"
)

// ErrUnknownModel is returned when no pricing exists for a model name.
var ErrUnknownModel = eris.New("unknown model")

// Rates holds per-provider pricing configuration.
type Rates struct {
	Models map[string]ModelRate `yaml:"models" mapstructure:"models"`
	Search SearchRate           `yaml:"search" mapstructure:"search"`
}

// ModelRate holds per-model token pricing (per thousand tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// SearchRate holds web-search pricing.
type SearchRate struct {
	PerResult float64 `yaml:"per_result" mapstructure:"per_result"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Rate looks up the pricing for a model.
func (c *Calculator) Rate(model string) (ModelRate, bool) {
	rate, ok := c.rates.Models[model]
	return rate, ok
}

// LLM computes the input and output cost of an LLM call. Unknown models cost
// nothing; callers validate the model up front with Rate.
func (c *Calculator) LLM(model string, input, output int) (inCost, outCost float64) {
	rate, ok := c.rates.Models[model]
	if !ok {
		return 0, 0
	}
	inCost = (float64(input) / 1000) * rate.Input
	outCost = (float64(output) / 1000) * rate.Output
	return inCost, outCost
}

// Search computes the cost of a web search that requested n results.
func (c *Calculator) Search(n int) float64 {
	return float64(n) * c.rates.Search.PerResult
}

// Merge overlays per-model overrides on top of r and returns the result.
// A zero search rate in overrides keeps the base rate.
func (r Rates) Merge(overrides Rates) Rates {
	out := Rates{
		Models: make(map[string]ModelRate, len(r.Models)+len(overrides.Models)),
		Search: r.Search,
	}
	for k, v := range r.Models {
		out.Models[k] = v
	}
	for k, v := range overrides.Models {
		out.Models[k] = v
	}
	if overrides.Search.PerResult > 0 {
		out.Search = overrides.Search
	}
	return out
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"gpt-3.5-turbo":              {Input: 0.0005, Output: 0.0015},
			"gpt-3.5-turbo-16k":          {Input: 0.003, Output: 0.004},
			"gpt-4o-mini":                {Input: 0.00015, Output: 0.0006},
			"gpt-4o":                     {Input: 0.0025, Output: 0.01},
			"claude-haiku-4-5-20251001":  {Input: 0.0008, Output: 0.004},
			"claude-sonnet-4-5-20250929": {Input: 0.003, Output: 0.015},
		},
		Search: SearchRate{PerResult: 0.00083},
	}
}

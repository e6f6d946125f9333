package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"small": {Input: 0.0005, Output: 0.0015},
			"large": {Input: 0.003, Output: 0.015},
		},
		Search: SearchRate{PerResult: 0.001},
	}
}

func TestLLM(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name    string
		model   string
		input   int
		output  int
		wantIn  float64
		wantOut float64
	}{
		{name: "small thousand each", model: "small", input: 1000, output: 1000, wantIn: 0.0005, wantOut: 0.0015},
		{name: "large partial", model: "large", input: 2500, output: 400, wantIn: 0.0075, wantOut: 0.006},
		{name: "zero tokens", model: "large", wantIn: 0, wantOut: 0},
		{name: "unknown model", model: "mystery", input: 1000, output: 1000, wantIn: 0, wantOut: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in, out := calc.LLM(tt.model, tt.input, tt.output)
			assert.InDelta(t, tt.wantIn, in, 1e-12)
			assert.InDelta(t, tt.wantOut, out, 1e-12)
		})
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.InDelta(t, 0.02, calc.Search(20), 1e-12)
	assert.Equal(t, 0.0, calc.Search(0))
}

func TestRate(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	r, ok := calc.Rate("small")
	assert.True(t, ok)
	assert.Equal(t, 0.0005, r.Input)

	_, ok = calc.Rate("mystery")
	assert.False(t, ok)
}

func TestRatesMerge(t *testing.T) {
	t.Parallel()
	base := testRates()

	merged := base.Merge(Rates{Models: map[string]ModelRate{
		"small":  {Input: 0.001, Output: 0.002},
		"custom": {Input: 0.01, Output: 0.02},
	}})
	assert.Equal(t, 0.001, merged.Models["small"].Input)
	assert.Equal(t, 0.003, merged.Models["large"].Input)
	assert.Contains(t, merged.Models, "custom")
	assert.Equal(t, 0.001, merged.Search.PerResult, "zero override keeps base search rate")
	assert.Equal(t, 0.0005, base.Models["small"].Input, "base is not mutated")

	merged = base.Merge(Rates{Search: SearchRate{PerResult: 0.005}})
	assert.Equal(t, 0.005, merged.Search.PerResult)
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	rates := DefaultRates()

	for _, m := range []string{"gpt-3.5-turbo", "gpt-4o-mini", "claude-haiku-4-5-20251001"} {
		r, ok := rates.Models[m]
		assert.True(t, ok, m)
		assert.Greater(t, r.Input, 0.0, m)
		assert.Greater(t, r.Output, r.Input, m)
	}
	assert.Equal(t, 0.00083, rates.Search.PerResult)
}

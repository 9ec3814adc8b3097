// Package pricing turns token counts into an estimated dollar cost.
package pricing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/promptbench/internal/usage"
)

// ModelPricing is the price per 1K tokens.
type ModelPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// DefaultPrice is used for models missing from the table.
var DefaultPrice = ModelPricing{Input: 0.0005, Output: 0.0015}

type Table struct {
	Providers map[string]map[string]ModelPricing
	Fallback  ModelPricing
}

// New returns a table with no per-model prices.
func New(fallback ModelPricing) *Table {
	return &Table{Fallback: fallback}
}

// Load reads a provider -> model -> price yaml file.
func Load(path string, fallback ModelPricing) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pricing file: %w", err)
	}
	var providers map[string]map[string]ModelPricing
	if err := yaml.Unmarshal(data, &providers); err != nil {
		return nil, fmt.Errorf("parsing pricing file: %w", err)
	}
	return &Table{Providers: providers, Fallback: fallback}, nil
}

// Price looks up a model, falling back when the provider or model is unknown.
func (t *Table) Price(provider, model string) ModelPricing {
	if t == nil {
		return DefaultPrice
	}
	if p, ok := t.Providers[provider][model]; ok {
		return p
	}
	return t.Fallback
}

// Cost calculates total cost for a request. Prices are per 1K tokens.
func (t *Table) Cost(provider, model string, inputTokens, outputTokens int) float64 {
	p := t.Price(provider, model)
	return (float64(inputTokens)/1000.0)*p.Input + (float64(outputTokens)/1000.0)*p.Output
}

// CostOf prices accumulated usage.
func (t *Table) CostOf(provider, model string, u usage.Totals) float64 {
	return t.Cost(provider, model, int(u.PromptTokens), int(u.CompletionTokens))
}

package pricing_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/signalnine/promptbench/internal/pricing"
	"github.com/signalnine/promptbench/internal/usage"
)

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func TestLoadPricing(t *testing.T) {
	dir := t.TempDir()
	content := `openai:
  gpt-4o-mini:
    input: 0.00015
    output: 0.0006
together:
  meta-llama/Llama-3-70b-chat-hf:
    input: 0.0009
    output: 0.0009
`
	path := filepath.Join(dir, "pricing.yaml")
	os.WriteFile(path, []byte(content), 0o644)

	table, err := pricing.Load(path, pricing.DefaultPrice)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cost := table.Cost("together", "meta-llama/Llama-3-70b-chat-hf", 1000, 500)
	want := 0.00135
	if abs(cost-want) > 1e-9 {
		t.Errorf("got %f, want %f", cost, want)
	}
}

func TestCostUnknownModelUsesFallback(t *testing.T) {
	table := pricing.New(pricing.DefaultPrice)
	cost := table.Cost("unknown", "unknown", 1000, 1000)
	if abs(cost-0.002) > 1e-9 {
		t.Errorf("expected fallback cost 0.002, got %f", cost)
	}

	free := pricing.New(pricing.ModelPricing{})
	if c := free.Cost("unknown", "unknown", 1000, 500); c != 0 {
		t.Errorf("expected 0 with zero fallback, got %f", c)
	}
}

func TestCostOf(t *testing.T) {
	var table *pricing.Table
	got := table.CostOf("openai", "x", usage.Totals{PromptTokens: 2000, CompletionTokens: 1000})
	if abs(got-0.0025) > 1e-9 {
		t.Errorf("got %f, want 0.0025", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := pricing.Load(filepath.Join(t.TempDir(), "nope.yaml"), pricing.DefaultPrice); err == nil {
		t.Error("expected error")
	}
}

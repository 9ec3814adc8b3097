package report_test

import (
	"bytes"
	"encoding/json"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/pricing"
	"github.com/signalnine/promptbench/internal/report"
	"github.com/signalnine/promptbench/internal/result"
	"github.com/signalnine/promptbench/internal/usage"
)

func ptr(v float64) *float64 { return &v }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func sampleOutcomes() []result.Outcome {
	fail := result.Outcome{Index: 2, Reference: "#### 3", Elapsed: 3 * time.Second}
	fail.Fail(result.KindRateLimited, nil, true)
	return []result.Outcome{
		{Index: 0, Reference: "#### 1", Predicted: ptr(1), Correct: true, Elapsed: time.Second,
			Usage: llm.NewUsage(100, 20), Trace: result.Trace{Attempts: 1, StrategyUsed: "pot"}},
		{Index: 1, Reference: "#### 2", Predicted: ptr(5), Elapsed: 2 * time.Second,
			Usage: llm.NewUsage(200, 40), Trace: result.Trace{Attempts: 2, StrategyUsed: "php", FallbackUsed: true}},
		fail,
		{Index: 3, Reference: "#### 4", Predicted: ptr(4), Correct: true, Elapsed: 2 * time.Second,
			Usage: llm.NewUsage(100, 20), Trace: result.Trace{Attempts: 1, StrategyUsed: "pot"}},
	}
}

func TestSummarize(t *testing.T) {
	m := report.Summarize("hybrid-pot-php", sampleOutcomes(), report.RunInfo{
		RunID:     "run-1",
		Model:     "gpt-4o-mini",
		WallClock: 4 * time.Second,
		Prices:    pricing.New(pricing.DefaultPrice),
	})
	if m.Questions != 4 || m.Correct != 2 || !near(m.Accuracy, 0.5) {
		t.Errorf("accuracy: %+v", m)
	}
	if m.Errors != 1 || !near(m.ErrorRate, 0.25) || m.ErrorKinds[result.KindRateLimited] != 1 {
		t.Errorf("errors: %+v", m)
	}
	if !near(m.AvgSecondsPerQuestion, 1) || !near(m.AvgJobSeconds, 2) {
		t.Errorf("timing: %v %v", m.AvgSecondsPerQuestion, m.AvgJobSeconds)
	}
	want := usage.Totals{Calls: 4, PromptTokens: 400, CompletionTokens: 80, TotalTokens: 480}
	if m.Usage != want {
		t.Errorf("usage: got %+v, want %+v", m.Usage, want)
	}
	if !near(m.AvgTokensPerQuestion, 120) {
		t.Errorf("tokens/q: %v", m.AvgTokensPerQuestion)
	}
	if !near(m.FallbackRate, 0.25) {
		t.Errorf("fallback rate: %v", m.FallbackRate)
	}
	if !near(m.CostUSD, 0.4*0.0005+0.08*0.0015) {
		t.Errorf("cost: %v", m.CostUSD)
	}
}

func TestSummarizePrefersBilledUsage(t *testing.T) {
	billed := usage.Totals{Calls: 9, PromptTokens: 1000, CompletionTokens: 1000, TotalTokens: 2000}
	m := report.Summarize("few-shot", sampleOutcomes(), report.RunInfo{Usage: billed})
	if m.Usage != billed {
		t.Errorf("got %+v", m.Usage)
	}
	// tagged outcomes drive the fallback rate, not the strategy name
	if m.FallbackRate != 0.25 {
		t.Errorf("fallback rate: %v", m.FallbackRate)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	m := report.Summarize("zero-shot", nil, report.RunInfo{})
	if m.Questions != 0 || m.Accuracy != 0 || m.ErrorRate != 0 {
		t.Errorf("got %+v", m)
	}
}

func TestCompare(t *testing.T) {
	metas := []*result.StrategyMeta{
		{Strategy: "zero-shot", Accuracy: 0.6, AvgSecondsPerQuestion: 1, AvgTokensPerQuestion: 100, ErrorRate: 0},
		{Strategy: "few-shot", Accuracy: 0.8, AvgSecondsPerQuestion: 2, AvgTokensPerQuestion: 400, ErrorRate: 0.1},
		{Strategy: "progressive-hint", Accuracy: 0.9, AvgSecondsPerQuestion: 4, AvgTokensPerQuestion: 800, ErrorRate: 0},
	}
	c := report.Compare(metas, report.DefaultWeights)

	if got := strings.Join(c.ByAccuracy, ","); got != "progressive-hint,few-shot,zero-shot" {
		t.Errorf("by accuracy: %s", got)
	}
	if got := strings.Join(c.ByTime, ","); got != "zero-shot,few-shot,progressive-hint" {
		t.Errorf("by time: %s", got)
	}
	if got := strings.Join(c.ByErrorRate, ","); got != "progressive-hint,zero-shot,few-shot" {
		t.Errorf("by error rate: %s", got)
	}

	// zero-shot: 0.4*0.6 + 0.2*(1-1/4) + 0.2*(1-100/800) + 0.2*1
	if c.Best() != "zero-shot" || !near(c.Composite[0].Composite, 0.24+0.15+0.175+0.2) {
		t.Errorf("composite: %+v", c.Composite)
	}
}

func TestCompareEmpty(t *testing.T) {
	if best := report.Compare(nil, report.DefaultWeights).Best(); best != "" {
		t.Errorf("got %q", best)
	}
}

func writeRun(t *testing.T) string {
	t.Helper()
	runDir := filepath.Join(t.TempDir(), "runs", "test-run")
	for _, m := range []*result.StrategyMeta{
		{RunID: "r1", Strategy: "zero-shot", Questions: 10, Accuracy: 0.6, AvgTokensPerQuestion: 100, CostUSD: 0.01},
		{RunID: "r1", Strategy: "few-shot", Questions: 10, Accuracy: 0.8, AvgTokensPerQuestion: 400, CostUSD: 0.04},
	} {
		if err := result.WriteMeta(result.StrategyDir(runDir, m.Strategy), m); err != nil {
			t.Fatal(err)
		}
	}
	return runDir
}

func TestGenerateTable(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Generate(writeRun(t), "table", &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"zero-shot", "few-shot", "60.0%", "$0.0400", "best overall"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestGenerateMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Generate(writeRun(t), "markdown", &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(buf.String(), "| few-shot | 10 | 80.0%") {
		t.Errorf("unexpected markdown:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "- Accuracy: few-shot > zero-shot") {
		t.Errorf("missing ranking:\n%s", buf.String())
	}
}

func TestGenerateJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Generate(writeRun(t), "json", &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var s report.Summary
	if err := json.Unmarshal(buf.Bytes(), &s); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if s.RunID != "r1" || len(s.Strategies) != 2 || len(s.Comparison.Composite) != 2 {
		t.Errorf("got %+v", s)
	}
}

func TestGenerateEmptyDir(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Generate(t.TempDir(), "table", &buf); err == nil {
		t.Error("expected error for a run dir with no summaries")
	}
}

func TestRejudge(t *testing.T) {
	outcomes := []result.Outcome{
		{Reference: "so #### 1,000", Predicted: ptr(1000), Correct: false},
		{Reference: "#### 7", Predicted: ptr(7), Correct: true},
		{Reference: "#### 7", Predicted: ptr(8), Correct: true},
		{Reference: "#### 7", Error: &result.ErrorInfo{Kind: result.KindTransient}, Correct: true},
	}
	if n := report.Rejudge(outcomes); n != 3 {
		t.Errorf("expected 3 changes, got %d", n)
	}
	if !outcomes[0].Correct || !outcomes[1].Correct || outcomes[2].Correct || outcomes[3].Correct {
		t.Errorf("got %+v", outcomes)
	}
}

func TestResummarizeKeepsCost(t *testing.T) {
	prev := &result.StrategyMeta{RunID: "r", Strategy: "few-shot", CostUSD: 1.25, WallClockS: 8,
		Usage: usage.Totals{Calls: 4, TotalTokens: 40}}
	m := report.Resummarize(prev, sampleOutcomes())
	if m.CostUSD != 1.25 || m.RunID != "r" || m.Usage != prev.Usage || !near(m.AvgSecondsPerQuestion, 2) {
		t.Errorf("got %+v", m)
	}
}

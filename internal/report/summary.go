// Package report turns stored outcomes into per-strategy summaries and a
// cross-strategy comparison.
package report

import (
	"time"

	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/pricing"
	"github.com/signalnine/promptbench/internal/result"
	"github.com/signalnine/promptbench/internal/usage"
)

// RunInfo is the context a strategy pass ran in.
type RunInfo struct {
	RunID     string
	Provider  string
	Model     string
	Sampling  llm.SamplingParams
	StartedAt time.Time
	WallClock time.Duration
	// Usage is what the service billed for the pass. When zero it is
	// rebuilt from the outcomes.
	Usage  usage.Totals
	Prices *pricing.Table
}

// Summarize computes the summary statistics for one strategy's outcomes.
func Summarize(strategy string, outcomes []result.Outcome, info RunInfo) *result.StrategyMeta {
	m := &result.StrategyMeta{
		RunID:      info.RunID,
		Strategy:   strategy,
		Model:      info.Model,
		Sampling:   info.Sampling,
		StartedAt:  info.StartedAt,
		Questions:  len(outcomes),
		WallClockS: info.WallClock.Seconds(),
		Usage:      info.Usage,
	}

	var jobTime time.Duration
	var fallbacks, tagged int
	var fromOutcomes usage.Totals
	for _, o := range outcomes {
		if o.Correct {
			m.Correct++
		}
		if o.Error != nil {
			m.Errors++
			if m.ErrorKinds == nil {
				m.ErrorKinds = map[string]int{}
			}
			m.ErrorKinds[o.Error.Kind]++
		}
		if o.Trace.StrategyUsed != "" {
			tagged++
		}
		if o.Trace.FallbackUsed {
			fallbacks++
		}
		jobTime += o.Elapsed
		fromOutcomes.Calls += int64(o.Trace.Attempts)
		fromOutcomes.PromptTokens += int64(o.Usage.PromptTokens)
		fromOutcomes.CompletionTokens += int64(o.Usage.CompletionTokens)
		fromOutcomes.TotalTokens += int64(o.Usage.TotalTokens)
	}
	if m.Usage == (usage.Totals{}) {
		m.Usage = fromOutcomes
	}

	if n := float64(len(outcomes)); n > 0 {
		m.Accuracy = float64(m.Correct) / n
		m.ErrorRate = float64(m.Errors) / n
		m.AvgSecondsPerQuestion = m.WallClockS / n
		m.AvgJobSeconds = jobTime.Seconds() / n
		m.AvgTokensPerQuestion = float64(m.Usage.TotalTokens) / n
		if tagged > 0 {
			m.FallbackRate = float64(fallbacks) / n
		}
	}
	m.CostUSD = info.Prices.CostOf(info.Provider, info.Model, m.Usage)
	return m
}

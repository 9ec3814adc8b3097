package report

import (
	"time"

	"github.com/signalnine/promptbench/internal/answer"
	"github.com/signalnine/promptbench/internal/result"
)

// Rejudge recomputes correctness of stored outcomes against their
// references and returns how many changed. Failed outcomes stay incorrect.
func Rejudge(outcomes []result.Outcome) int {
	changed := 0
	for i := range outcomes {
		o := &outcomes[i]
		correct := false
		if o.Error == nil && o.Predicted != nil {
			correct = answer.Equal(o.Predicted, answer.Ptr(answer.Extract(o.Reference)))
		}
		if correct != o.Correct {
			o.Correct = correct
			changed++
		}
	}
	return changed
}

// Resummarize rebuilds a summary from rejudged outcomes, keeping the run
// context and cost recorded in prev.
func Resummarize(prev *result.StrategyMeta, outcomes []result.Outcome) *result.StrategyMeta {
	m := Summarize(prev.Strategy, outcomes, RunInfo{
		RunID:     prev.RunID,
		Model:     prev.Model,
		Sampling:  prev.Sampling,
		StartedAt: prev.StartedAt,
		WallClock: time.Duration(prev.WallClockS * float64(time.Second)),
		Usage:     prev.Usage,
	})
	m.CostUSD = prev.CostUSD
	return m
}

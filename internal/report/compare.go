package report

import (
	"sort"

	"github.com/signalnine/promptbench/internal/result"
)

// Weights for the composite score.
type Weights struct {
	Accuracy  float64 `json:"accuracy"`
	Time      float64 `json:"time"`
	Tokens    float64 `json:"tokens"`
	ErrorRate float64 `json:"error_rate"`
}

var DefaultWeights = Weights{
	Accuracy:  0.4,
	Time:      0.2,
	Tokens:    0.2,
	ErrorRate: 0.2,
}

type Score struct {
	Strategy  string  `json:"strategy"`
	Composite float64 `json:"composite"`
}

// Comparison ranks strategies per metric, best first.
type Comparison struct {
	ByAccuracy  []string `json:"by_accuracy"`
	ByTime      []string `json:"by_time"`
	ByTokens    []string `json:"by_tokens"`
	ByErrorRate []string `json:"by_error_rate"`
	Composite   []Score  `json:"composite"`
}

// Best is the strategy with the highest composite score.
func (c Comparison) Best() string {
	if len(c.Composite) == 0 {
		return ""
	}
	return c.Composite[0].Strategy
}

// CompositeScore combines accuracy, speed, token economy and reliability.
// Time and token scores are 1 - value/max over the compared strategies.
func CompositeScore(m *result.StrategyMeta, maxTime, maxTokens float64, w Weights) float64 {
	if w == (Weights{}) {
		w = DefaultWeights
	}
	total := w.Accuracy + w.Time + w.Tokens + w.ErrorRate
	if total == 0 {
		return 0
	}
	timeScore, tokenScore := 1.0, 1.0
	if maxTime > 0 {
		timeScore = 1 - m.AvgSecondsPerQuestion/maxTime
	}
	if maxTokens > 0 {
		tokenScore = 1 - m.AvgTokensPerQuestion/maxTokens
	}
	return (m.Accuracy*w.Accuracy +
		timeScore*w.Time +
		tokenScore*w.Tokens +
		(1-m.ErrorRate)*w.ErrorRate) / total
}

func Compare(metas []*result.StrategyMeta, w Weights) Comparison {
	var maxTime, maxTokens float64
	for _, m := range metas {
		maxTime = max(maxTime, m.AvgSecondsPerQuestion)
		maxTokens = max(maxTokens, m.AvgTokensPerQuestion)
	}

	rank := func(key func(*result.StrategyMeta) float64, desc bool) []string {
		sorted := append([]*result.StrategyMeta(nil), metas...)
		sort.SliceStable(sorted, func(i, j int) bool {
			a, b := key(sorted[i]), key(sorted[j])
			if a == b {
				return sorted[i].Strategy < sorted[j].Strategy
			}
			if desc {
				return a > b
			}
			return a < b
		})
		names := make([]string, len(sorted))
		for i, m := range sorted {
			names[i] = m.Strategy
		}
		return names
	}

	c := Comparison{
		ByAccuracy:  rank(func(m *result.StrategyMeta) float64 { return m.Accuracy }, true),
		ByTime:      rank(func(m *result.StrategyMeta) float64 { return m.AvgSecondsPerQuestion }, false),
		ByTokens:    rank(func(m *result.StrategyMeta) float64 { return m.AvgTokensPerQuestion }, false),
		ByErrorRate: rank(func(m *result.StrategyMeta) float64 { return m.ErrorRate }, false),
	}
	for _, m := range metas {
		c.Composite = append(c.Composite, Score{
			Strategy:  m.Strategy,
			Composite: CompositeScore(m, maxTime, maxTokens, w),
		})
	}
	sort.SliceStable(c.Composite, func(i, j int) bool {
		if c.Composite[i].Composite == c.Composite[j].Composite {
			return c.Composite[i].Strategy < c.Composite[j].Strategy
		}
		return c.Composite[i].Composite > c.Composite[j].Composite
	})
	return c
}

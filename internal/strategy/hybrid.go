package strategy

import (
	"context"
	"time"

	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/result"
)

const (
	DefaultPoTTemperature = 0.2
	DefaultPHPTemperature = 0.5
)

// Hybrid tries program-of-thoughts first and falls back to progressive
// hinting when the program's answer is not correct. Each stage gets its own
// copy of the sampling parameters.
type Hybrid struct {
	PoT            *ProgramOfThoughts
	PHP            *ProgressiveHint
	PoTTemperature float64
	PHPTemperature float64
}

func (h *Hybrid) Name() string { return "hybrid-pot-php" }

func (h *Hybrid) Execute(ctx context.Context, job result.Job, params llm.SamplingParams) result.Outcome {
	start := time.Now()

	first := h.PoT.Execute(ctx, job, params.WithTemperature(h.PoTTemperature))
	if first.Correct {
		first.Strategy = h.Name()
		first.Trace.StrategyUsed = "pot"
		first.Elapsed = time.Since(start)
		return first
	}

	out := h.PHP.Execute(ctx, job, params.WithTemperature(h.PHPTemperature))
	out.Strategy = h.Name()
	out.Usage = first.Usage.Add(out.Usage)
	out.Trace.Attempts += first.Trace.Attempts
	out.Trace.Code = first.Trace.Code
	out.Trace.ProgramOutput = first.Trace.ProgramOutput
	out.Trace.CodeError = first.Trace.CodeError
	out.Trace.StrategyUsed = "php"
	out.Trace.FallbackUsed = true
	out.Elapsed = time.Since(start)
	return out
}

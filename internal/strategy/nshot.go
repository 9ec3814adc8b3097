package strategy

import (
	"context"
	"time"

	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/prompt"
	"github.com/signalnine/promptbench/internal/result"
)

// NShot asks once, with Shots worked examples ahead of the question.
// Zero shots is the zero-shot baseline.
type NShot struct {
	Label   string
	Shots   int
	Service llm.Service
}

func (s *NShot) Name() string { return s.Label }

func (s *NShot) Execute(ctx context.Context, job result.Job, params llm.SamplingParams) (out result.Outcome) {
	start := time.Now()
	out = result.NewOutcome(job, s.Name())
	defer func() { out.Elapsed = time.Since(start) }()

	out.Trace.Attempts = 1
	resp, err := s.Service.Generate(ctx, prompt.NShot(s.Shots, job.Question), params)
	if err != nil {
		failService(&out, err)
		return out
	}
	out.RawResponse = resp.Text
	out.Usage = resp.Usage
	judge(&out, resp.Text, referenceValue(job))
	return out
}

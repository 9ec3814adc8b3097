package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signalnine/promptbench/internal/answer"
	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/prompt"
	"github.com/signalnine/promptbench/internal/result"
	"github.com/signalnine/promptbench/internal/sandbox"
)

const DefaultCodeTimeout = 30 * time.Second

// ProgramOfThoughts has the model write a program and takes the answer
// from what the program prints.
type ProgramOfThoughts struct {
	Service llm.Service
	Sandbox sandbox.Runner
	Timeout time.Duration
}

func (p *ProgramOfThoughts) Name() string { return "program-of-thoughts" }

func (p *ProgramOfThoughts) Execute(ctx context.Context, job result.Job, params llm.SamplingParams) (out result.Outcome) {
	start := time.Now()
	out = result.NewOutcome(job, p.Name())
	defer func() { out.Elapsed = time.Since(start) }()

	out.Trace.Attempts = 1
	resp, err := p.Service.Generate(ctx, prompt.Code(job.Question), params)
	if err != nil {
		failService(&out, err)
		return out
	}
	out.RawResponse = resp.Text
	out.Usage = resp.Usage

	code := sandbox.ExtractCode(resp.Text)
	out.Trace.Code = code

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultCodeTimeout
	}
	res, err := p.Sandbox.Run(ctx, code, timeout)
	if err != nil {
		out.Trace.CodeError = sandbox.UnknownError
		if ctx.Err() != nil {
			out.Fail(result.KindCanceled, err, false)
		} else {
			out.Fail(result.KindCodeExecution, fmt.Errorf("running program: %w", err), false)
		}
		return out
	}
	out.Trace.ProgramOutput = res.Stdout

	switch {
	case res.TimedOut:
		out.Trace.CodeError = sandbox.TimeoutError
		out.Fail(result.KindCodeTimeout, fmt.Errorf("program exceeded %s", timeout), false)
		return out
	case res.ExitCode != 0:
		out.Trace.CodeError = sandbox.Classify(res.Stderr, false)
		out.Fail(result.KindCodeExecution, fmt.Errorf("%s: %s", out.Trace.CodeError, tail(res.Stderr, 3)), false)
		return out
	}

	out.Predicted = answer.Ptr(answer.FromOutput(res.Stdout))
	if out.Predicted == nil {
		out.Fail(result.KindExtractionFailed, errors.New("program printed no number"), false)
		return out
	}
	out.Correct = answer.Equal(out.Predicted, referenceValue(job))
	return out
}

// tail returns the last n non-empty lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

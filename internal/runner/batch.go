package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/result"
	"github.com/signalnine/promptbench/internal/strategy"
)

// Options is everything the dispatch core needs; it is built once from
// configuration and passed down explicitly.
type Options struct {
	MaxWorkers           int
	RequestsPerMinute    int
	MaxRetries           int
	BaseRetryDelay       time.Duration
	Sampling             llm.SamplingParams
	MaxHintAttempts      int
	CodeExecutionTimeout time.Duration
}

var DefaultOptions = Options{
	MaxWorkers:        5,
	RequestsPerMinute: 100,
	MaxRetries:        3,
	BaseRetryDelay:    time.Second,
	Sampling: llm.SamplingParams{
		Temperature: 0.1,
		TopP:        0.9,
		MaxTokens:   2048,
	},
	MaxHintAttempts:      strategy.DefaultMaxHints,
	CodeExecutionTimeout: strategy.DefaultCodeTimeout,
}

// Processor fans a batch of jobs out over a bounded worker pool.
type Processor struct {
	Workers  int
	Progress *Progress
	Logger   *log.Logger
}

// ProcessBatch runs exec on every job and returns one outcome per job,
// positioned by job index. Job failures, panics included, become failed
// outcomes; the only error is for a batch whose indices are not a
// permutation of [0, N).
func (p *Processor) ProcessBatch(ctx context.Context, jobs []result.Job, exec strategy.Executor, params llm.SamplingParams) ([]result.Outcome, error) {
	if err := checkIndices(jobs); err != nil {
		return nil, err
	}
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}

	outcomes := make([]result.Outcome, len(jobs))
	tasks := make([]Task, len(jobs))
	for i := range jobs {
		job := jobs[i]
		tasks[i] = func() error {
			o := runOne(ctx, job, exec, params)
			outcomes[job.Index] = o
			p.Progress.Done(o)
			if o.Error != nil {
				return fmt.Errorf("job %d: %s: %s", job.Index, o.Error.Kind, o.Error.Message)
			}
			return nil
		}
	}

	errs := RunPool(p.Workers, tasks)
	if len(errs) > 0 {
		logger.Printf("warning: %s: %d of %d jobs failed", exec.Name(), len(errs), len(jobs))
	}
	return outcomes, nil
}

// runOne is the per-job boundary: whatever the executor does, exactly one
// outcome comes back.
func runOne(ctx context.Context, job result.Job, exec strategy.Executor, params llm.SamplingParams) (o result.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o = result.NewOutcome(job, exec.Name())
			o.Fail(result.KindPanic, fmt.Errorf("panic: %v", r), false)
			o.Elapsed = time.Since(start)
		}
	}()
	o = exec.Execute(ctx, job, params)
	o.Index = job.Index
	if o.Strategy == "" {
		o.Strategy = exec.Name()
	}
	return o
}

func checkIndices(jobs []result.Job) error {
	seen := make([]bool, len(jobs))
	for _, j := range jobs {
		if j.Index < 0 || j.Index >= len(jobs) {
			return fmt.Errorf("job index %d out of range [0, %d)", j.Index, len(jobs))
		}
		if seen[j.Index] {
			return fmt.Errorf("duplicate job index %d", j.Index)
		}
		seen[j.Index] = true
	}
	return nil
}

package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/report"
	"github.com/signalnine/promptbench/internal/result"
	"github.com/signalnine/promptbench/internal/strategy"
	"github.com/signalnine/promptbench/internal/usage"
)

type PassOpts struct {
	Executor strategy.Executor
	Jobs     []result.Job
	Params   llm.SamplingParams
	RunDir   string
	// Tracker is shared across passes; the pass is billed for the
	// difference between snapshots.
	Tracker *usage.Tracker
	Info    report.RunInfo
}

// RunStrategy runs one strategy over the whole dataset and writes its
// outcomes and summary under RunDir.
func (p *Processor) RunStrategy(ctx context.Context, opts *PassOpts) (*result.StrategyMeta, error) {
	name := opts.Executor.Name()
	before := opts.Tracker.Snapshot()
	start := time.Now()

	outcomes, err := p.ProcessBatch(ctx, opts.Jobs, opts.Executor, opts.Params)
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", name, err)
	}

	info := opts.Info
	info.Sampling = opts.Params
	info.StartedAt = start.UTC()
	info.WallClock = time.Since(start)
	if opts.Tracker != nil {
		info.Usage = opts.Tracker.Snapshot().Sub(before)
	}
	meta := report.Summarize(name, outcomes, info)

	dir := result.StrategyDir(opts.RunDir, name)
	if err := result.WriteOutcomes(dir, outcomes); err != nil {
		return meta, err
	}
	if err := result.WriteMeta(dir, meta); err != nil {
		return meta, fmt.Errorf("writing meta: %w", err)
	}
	return meta, nil
}

package runner_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/ratelimit"
	"github.com/signalnine/promptbench/internal/result"
	"github.com/signalnine/promptbench/internal/retry"
	"github.com/signalnine/promptbench/internal/runner"
	"github.com/signalnine/promptbench/internal/strategy"
)

// flakyExecutor fails, panics or succeeds depending on the job index.
type flakyExecutor struct {
	active atomic.Int32
	peak   atomic.Int32
}

func (f *flakyExecutor) Name() string { return "flaky" }

func (f *flakyExecutor) Execute(ctx context.Context, job result.Job, p llm.SamplingParams) result.Outcome {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		cur := f.peak.Load()
		if n <= cur || f.peak.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)

	o := result.NewOutcome(job, f.Name())
	switch job.Index % 5 {
	case 0:
		panic("executor bug")
	case 1:
		o.Fail(result.KindTransient, errors.New("upstream 503"), true)
	default:
		v := float64(job.Index)
		o.Predicted = &v
		o.Correct = true
	}
	return o
}

func jobs(n int) []result.Job {
	js := make([]result.Job, n)
	for i := range js {
		js[i] = result.Job{Index: i, Question: "q", Reference: "#### 1"}
	}
	return js
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func TestProcessBatchReturnsEveryIndexOnce(t *testing.T) {
	const n = 53
	exec := &flakyExecutor{}
	p := &runner.Processor{Workers: 4, Logger: quiet()}

	// submit in shuffled order; outcomes still come back by index
	in := jobs(n)
	rand.New(rand.NewSource(1)).Shuffle(len(in), func(i, j int) { in[i], in[j] = in[j], in[i] })

	outcomes, err := p.ProcessBatch(context.Background(), in, exec, llm.SamplingParams{})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(outcomes) != n {
		t.Fatalf("expected %d outcomes, got %d", n, len(outcomes))
	}
	for i, o := range outcomes {
		if o.Index != i {
			t.Errorf("slot %d holds outcome %d", i, o.Index)
		}
		switch i % 5 {
		case 0:
			if o.Error == nil || o.Error.Kind != result.KindPanic || o.Predicted != nil {
				t.Errorf("job %d: expected panic outcome, got %+v", i, o)
			}
			if o.Strategy != "flaky" {
				t.Errorf("job %d: strategy %q", i, o.Strategy)
			}
		case 1:
			if o.Error == nil || o.Error.Kind != result.KindTransient {
				t.Errorf("job %d: expected failure, got %+v", i, o)
			}
		default:
			if o.Error != nil || o.Predicted == nil || *o.Predicted != float64(i) {
				t.Errorf("job %d: expected success, got %+v", i, o)
			}
		}
	}
	if exec.peak.Load() > 4 {
		t.Errorf("peak concurrency %d exceeds 4 workers", exec.peak.Load())
	}
}

func TestProcessBatchRejectsBadIndices(t *testing.T) {
	p := &runner.Processor{Workers: 2, Logger: quiet()}
	dup := []result.Job{{Index: 0}, {Index: 0}}
	if _, err := p.ProcessBatch(context.Background(), dup, &flakyExecutor{}, llm.SamplingParams{}); err == nil {
		t.Error("expected error for duplicate index")
	}
	out := []result.Job{{Index: 0}, {Index: 2}}
	if _, err := p.ProcessBatch(context.Background(), out, &flakyExecutor{}, llm.SamplingParams{}); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	p := &runner.Processor{Workers: 2, Logger: quiet()}
	outcomes, err := p.ProcessBatch(context.Background(), nil, &flakyExecutor{}, llm.SamplingParams{})
	if err != nil || len(outcomes) != 0 {
		t.Errorf("got %v, %v", outcomes, err)
	}
}

type countingService struct{ calls atomic.Int32 }

func (s *countingService) Generate(ctx context.Context, msgs []llm.Message, p llm.SamplingParams) (llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return llm.Response{}, err
	}
	n := s.calls.Add(1)
	if n%4 == 0 {
		return llm.Response{}, llm.Transient(503, errors.New("blip"))
	}
	return llm.Response{Text: "#### 9", Usage: llm.NewUsage(5, 5)}, nil
}

func TestEveryCallPassesTheLimiter(t *testing.T) {
	svc := &countingService{}
	lim := ratelimit.New(1000)
	client := retry.New(svc, retry.Policy{MaxAttempts: 3},
		retry.WithLimiter(lim),
		retry.WithSleep(func(context.Context, time.Duration) error { return nil }),
		retry.WithLogger(quiet()))
	exec, err := strategy.New(strategy.ProgressiveHintName, strategy.Deps{Service: client})
	if err != nil {
		t.Fatalf("strategy.New: %v", err)
	}

	p := &runner.Processor{Workers: 3, Logger: quiet()}
	outcomes, err := p.ProcessBatch(context.Background(), jobs(12), exec, llm.SamplingParams{})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(outcomes) != 12 {
		t.Fatalf("expected 12 outcomes, got %d", len(outcomes))
	}
	if got, want := lim.InWindow(), int(svc.calls.Load()); got != want {
		t.Errorf("limiter admitted %d calls, service saw %d", got, want)
	}
}

func TestProcessBatchCanceled(t *testing.T) {
	svc := &countingService{}
	exec, _ := strategy.New(strategy.ZeroShotName, strategy.Deps{Service: svc})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &runner.Processor{Workers: 2, Logger: quiet()}
	outcomes, err := p.ProcessBatch(ctx, jobs(5), exec, llm.SamplingParams{})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	for i, o := range outcomes {
		if o.Index != i || o.Error == nil || o.Error.Kind != result.KindCanceled {
			t.Errorf("outcome %d: %+v", i, o)
		}
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	pr := runner.NewProgress(&buf, "few-shot", 3, time.Hour)
	p := &runner.Processor{Workers: 1, Progress: pr, Logger: quiet()}
	exec := &flakyExecutor{}
	p.ProcessBatch(context.Background(), []result.Job{{Index: 0}, {Index: 1}, {Index: 2}}, exec, llm.SamplingParams{})
	pr.Finish()

	snap := pr.Snapshot()
	if snap.Done != 3 || snap.Failed != 2 || snap.Correct != 1 {
		t.Errorf("snapshot: %+v", snap)
	}
	// first update prints, the rest are throttled, then the final line
	if lines := bytes.Count(buf.Bytes(), []byte("\n")); lines != 2 {
		t.Errorf("expected 2 progress lines, got %d:\n%s", lines, buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("[few-shot] 3/3 (100.0%)")) {
		t.Errorf("final line missing:\n%s", buf.String())
	}
}

package runner

import (
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/signalnine/promptbench/internal/result"
)

const DefaultProgressInterval = 5 * time.Second

// Progress prints batch progress at most once per interval. A nil
// *Progress ignores updates.
type Progress struct {
	w     io.Writer
	label string
	total int
	start time.Time
	every rate.Sometimes

	mu      sync.Mutex
	done    int
	correct int
	failed  int
}

func NewProgress(w io.Writer, label string, total int, interval time.Duration) *Progress {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &Progress{
		w:     w,
		label: label,
		total: total,
		start: time.Now(),
		every: rate.Sometimes{Interval: interval},
	}
}

func (p *Progress) Done(o result.Outcome) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.done++
	if o.Correct {
		p.correct++
	}
	if o.Error != nil {
		p.failed++
	}
	last := p.done == p.total
	p.mu.Unlock()

	if last {
		return
	}
	p.every.Do(p.print)
}

// Finish prints the final line.
func (p *Progress) Finish() {
	if p == nil {
		return
	}
	p.print()
}

type Snapshot struct {
	Done    int
	Total   int
	Correct int
	Failed  int
	Elapsed time.Duration
}

func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Done:    p.done,
		Total:   p.total,
		Correct: p.correct,
		Failed:  p.failed,
		Elapsed: time.Since(p.start),
	}
}

func (p *Progress) print() {
	fmt.Fprintln(p.w, p.Snapshot().String(p.label))
}

func (s Snapshot) String(label string) string {
	pct, perSec := 0.0, 0.0
	if s.Total > 0 {
		pct = 100 * float64(s.Done) / float64(s.Total)
	}
	if secs := s.Elapsed.Seconds(); secs > 0 {
		perSec = float64(s.Done) / secs
	}
	eta := "-"
	if perSec > 0 && s.Done < s.Total {
		eta = time.Duration(float64(s.Total-s.Done) / perSec * float64(time.Second)).Round(time.Second).String()
	}
	return fmt.Sprintf("[%s] %d/%d (%.1f%%) correct %d failed %d | %.2f q/s | elapsed %s | eta %s",
		label, s.Done, s.Total, pct, s.Correct, s.Failed, perSec, s.Elapsed.Round(time.Second), eta)
}

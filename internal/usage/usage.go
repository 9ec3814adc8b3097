// Package usage accumulates token counts across every successful service
// call and optionally logs one JSON line per call.
package usage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/signalnine/promptbench/internal/llm"
)

type Totals struct {
	Calls            int64 `json:"calls"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Sub returns t minus an earlier snapshot.
func (t Totals) Sub(earlier Totals) Totals {
	return Totals{
		Calls:            t.Calls - earlier.Calls,
		PromptTokens:     t.PromptTokens - earlier.PromptTokens,
		CompletionTokens: t.CompletionTokens - earlier.CompletionTokens,
		TotalTokens:      t.TotalTokens - earlier.TotalTokens,
	}
}

func (t Totals) AvgTokensPerCall() float64 {
	if t.Calls == 0 {
		return 0
	}
	return float64(t.TotalTokens) / float64(t.Calls)
}

// Tracker counters only grow. The zero value is ready to use.
type Tracker struct {
	mu     sync.Mutex
	totals Totals
}

func NewTracker() *Tracker { return &Tracker{} }

func (t *Tracker) Add(u llm.Usage) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.totals.Calls++
	t.totals.PromptTokens += int64(u.PromptTokens)
	t.totals.CompletionTokens += int64(u.CompletionTokens)
	t.totals.TotalTokens += int64(u.TotalTokens)
	t.mu.Unlock()
}

func (t *Tracker) Snapshot() Totals {
	if t == nil {
		return Totals{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totals
}

type Record struct {
	Label            string    `json:"label,omitempty"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	At               time.Time `json:"at"`
}

func NewRecord(label, model string, u llm.Usage, at time.Time) Record {
	return Record{
		Label:            label,
		Model:            model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		At:               at,
	}
}

// Log serializes records to w, one JSON object per line.
type Log struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

func NewLog(w io.Writer) *Log {
	return &Log{enc: json.NewEncoder(w)}
}

func (l *Log) Write(rec Record) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return
	}
	l.err = l.enc.Encode(rec)
}

// Err returns the first write error, if any.
func (l *Log) Err() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// ParseLog reads a usage log. Lines that are not usage records are skipped.
func ParseLog(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading usage log: %w", err)
	}
	var records []Record
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.Model != "" || rec.TotalTokens > 0 {
			records = append(records, rec)
		}
	}
	if err := sc.Err(); err != nil {
		return records, fmt.Errorf("scanning usage log: %w", err)
	}
	return records, nil
}

func Total(records []Record) Totals {
	var t Totals
	for _, r := range records {
		t.Calls++
		t.PromptTokens += int64(r.PromptTokens)
		t.CompletionTokens += int64(r.CompletionTokens)
		t.TotalTokens += int64(r.TotalTokens)
	}
	return t
}

package result

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	OutcomesFile = "outcomes.jsonl"
	MetaFile     = "meta.json"
	UsageFile    = "usage.jsonl"
	SummaryFile  = "summary.json"
)

func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir, err := filepath.Abs(filepath.Join(runsDir, stamp))
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

func StrategyDir(runDir, strategy string) string {
	return filepath.Join(runDir, strategy)
}

// WriteOutcomes writes one JSON object per line, in slice order.
func WriteOutcomes(dir string, outcomes []Outcome) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating strategy dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, OutcomesFile))
	if err != nil {
		return fmt.Errorf("creating outcomes file: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range outcomes {
		if err := enc.Encode(&outcomes[i]); err != nil {
			f.Close()
			return fmt.Errorf("encoding outcome %d: %w", outcomes[i].Index, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing outcomes: %w", err)
	}
	return f.Close()
}

func ReadOutcomes(path string) ([]Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading outcomes: %w", err)
	}
	defer f.Close()
	var outcomes []Outcome
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var o Outcome
		if err := json.Unmarshal(sc.Bytes(), &o); err != nil {
			return nil, fmt.Errorf("parsing outcome on line %d: %w", line, err)
		}
		outcomes = append(outcomes, o)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning outcomes: %w", err)
	}
	return outcomes, nil
}

func WriteMeta(dir string, meta *StrategyMeta) error {
	return WriteJSON(filepath.Join(dir, MetaFile), meta)
}

func ReadMeta(path string) (*StrategyMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	var meta StrategyMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing meta: %w", err)
	}
	return &meta, nil
}

// WriteJSON writes v indented to path, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating dir for %s: %w", filepath.Base(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Package dataset loads question/answer records from JSON Lines files.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/signalnine/promptbench/internal/result"
)

type record struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Stats struct {
	Lines   int
	Loaded  int
	Skipped int
}

// Load reads path and returns at most limit jobs (limit <= 0 means all).
func Load(path string, limit int) ([]result.Job, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()
	return Read(f, limit)
}

// Read parses JSON Lines from r. Blank lines, lines that are not JSON
// objects, and records missing a question or answer are skipped. Job
// indices follow the order of accepted records.
func Read(r io.Reader, limit int) ([]result.Job, Stats, error) {
	var (
		jobs  []result.Job
		stats Stats
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		if limit > 0 && len(jobs) >= limit {
			break
		}
		stats.Lines++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			stats.Skipped++
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			stats.Skipped++
			continue
		}
		if strings.TrimSpace(rec.Question) == "" || strings.TrimSpace(rec.Answer) == "" {
			stats.Skipped++
			continue
		}
		jobs = append(jobs, result.Job{
			Index:     len(jobs),
			Question:  rec.Question,
			Reference: rec.Answer,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("reading dataset: %w", err)
	}
	stats.Loaded = len(jobs)
	return jobs, stats, nil
}

package dataset_test

import (
	"strings"
	"testing"

	"github.com/signalnine/promptbench/internal/dataset"
)

const sample = `{"question": "2+2?", "answer": "Two plus two.\n#### 4"}

not json at all
{"question": "", "answer": "#### 1"}
{"question": "3*3?", "answer": "#### 9"}
{"question": "missing answer"}
{"question": "10/2?", "answer": "#### 5"}
`

func TestReadSkipsBadLines(t *testing.T) {
	jobs, stats, err := dataset.Read(strings.NewReader(sample), 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	for i, j := range jobs {
		if j.Index != i {
			t.Errorf("job %d has index %d", i, j.Index)
		}
	}
	if jobs[1].Question != "3*3?" || jobs[1].Reference != "#### 9" {
		t.Errorf("job 1: %+v", jobs[1])
	}
	if stats.Loaded != 3 || stats.Skipped != 4 || stats.Lines != 7 {
		t.Errorf("stats: %+v", stats)
	}
}

func TestReadLimit(t *testing.T) {
	jobs, _, err := dataset.Read(strings.NewReader(sample), 2)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(jobs) != 2 || jobs[1].Question != "3*3?" {
		t.Errorf("got %+v", jobs)
	}
}

func TestLoadFixture(t *testing.T) {
	jobs, stats, err := dataset.Load("../../testdata/gsm8k_sample.jsonl", 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(jobs) == 0 || stats.Skipped != 1 {
		t.Errorf("jobs=%d stats=%+v", len(jobs), stats)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, _, err := dataset.Load("nonexistent.jsonl", 0); err == nil {
		t.Error("expected error for missing file")
	}
}

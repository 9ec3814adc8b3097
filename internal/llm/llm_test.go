package llm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/signalnine/promptbench/internal/llm"
)

func TestNewUsageTotal(t *testing.T) {
	u := llm.NewUsage(10, 5).Add(llm.NewUsage(1, 2))
	if u.PromptTokens != 11 || u.CompletionTokens != 7 || u.TotalTokens != 18 {
		t.Errorf("got %+v", u)
	}
	if neg := llm.NewUsage(-3, 4); neg.PromptTokens != 0 || neg.TotalTokens != 4 {
		t.Errorf("negative counts not clamped: %+v", neg)
	}
}

func TestWithTemperatureCopies(t *testing.T) {
	base := llm.SamplingParams{Temperature: 0.1, TopP: 0.9}
	hot := base.WithTemperature(0.5)
	if base.Temperature != 0.1 {
		t.Errorf("base mutated: %v", base.Temperature)
	}
	if hot.Temperature != 0.5 || hot.TopP != 0.9 {
		t.Errorf("copy: %+v", hot)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err       error
		want      llm.ErrorKind
		retriable bool
	}{
		{llm.RateLimited(429, "x"), llm.KindRateLimited, true},
		{fmt.Errorf("wrapped: %w", llm.Transient(503, errors.New("down"))), llm.KindTransient, true},
		{llm.Malformed("bad %s", "shape"), llm.KindMalformed, false},
		{errors.New("socket reset"), llm.KindTransient, true},
		{context.DeadlineExceeded, llm.KindCanceled, false},
		{llm.Transient(0, context.Canceled), llm.KindCanceled, false},
	}
	for _, tt := range tests {
		if got := llm.Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v): got %s, want %s", tt.err, got, tt.want)
		}
		if got := llm.IsRetriable(tt.err); got != tt.retriable {
			t.Errorf("IsRetriable(%v): got %v, want %v", tt.err, got, tt.retriable)
		}
	}
}

package strategy_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/sandbox"
)

// replayService answers calls from a fixed list of replies, repeating the
// last one when the list runs out, and records every request.
type replayService struct {
	mu      sync.Mutex
	replies []string
	errs    map[int]error
	calls   [][]llm.Message
	params  []llm.SamplingParams
}

func replay(replies ...string) *replayService {
	return &replayService{replies: replies}
}

func (s *replayService) Generate(ctx context.Context, msgs []llm.Message, p llm.SamplingParams) (llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.calls)
	s.calls = append(s.calls, msgs)
	s.params = append(s.params, p)
	if err, ok := s.errs[n]; ok {
		return llm.Response{}, err
	}
	reply := s.replies[len(s.replies)-1]
	if n < len(s.replies) {
		reply = s.replies[n]
	}
	return llm.Response{Text: reply, Usage: llm.NewUsage(100, 20)}, nil
}

func (s *replayService) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *replayService) lastUser(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.calls[i]
	return msgs[len(msgs)-1].Content
}

// fakeSandbox returns a canned result without running anything.
type fakeSandbox struct {
	result *sandbox.Result
	err    error
	code   []string
}

func (f *fakeSandbox) Run(ctx context.Context, code string, timeout time.Duration) (*sandbox.Result, error) {
	f.code = append(f.code, code)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func printed(stdout string) *fakeSandbox {
	return &fakeSandbox{result: &sandbox.Result{Stdout: stdout}}
}

func isCodePrompt(msgs []llm.Message) bool {
	return strings.HasPrefix(msgs[len(msgs)-1].Content, "Please solve this math problem by writing Python code.")
}

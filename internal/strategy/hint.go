package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/signalnine/promptbench/internal/answer"
	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/prompt"
	"github.com/signalnine/promptbench/internal/result"
)

type phase int

const (
	phaseInitial phase = iota
	phaseHinting
	phaseConverged
	phaseExhausted
)

func (p phase) String() string {
	switch p {
	case phaseInitial:
		return "initial"
	case phaseHinting:
		return "hinting"
	case phaseConverged:
		return "converged"
	case phaseExhausted:
		return "exhausted"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p phase) terminal() bool { return p == phaseConverged || p == phaseExhausted }

// hintState lives for one job only.
type hintState struct {
	phase     phase
	hint      int // current hint round, 0 before any hint
	maxHints  int
	lastRaw   string
	lastValue *float64
	lastText  string
}

// advance moves the machine after an attempt. accepted means the attempt's
// answer is final.
func (s *hintState) advance(accepted bool) {
	switch {
	case s.phase.terminal():
	case accepted:
		s.phase = phaseConverged
	case s.hint >= s.maxHints:
		s.phase = phaseExhausted
	default:
		s.hint++
		s.phase = phaseHinting
	}
}

const (
	DefaultMaxHints            = 3
	DefaultLongAnswerThreshold = 20
)

// ProgressiveHint re-asks with rotating hints until an answer matches the
// reference or MaxHints hint rounds are spent. Each hint echoes the previous
// answer when it looks like a number and otherwise asks for the marker format.
type ProgressiveHint struct {
	Service   llm.Service
	Shots     int
	MaxHints  int
	Templates []string
	// LongAnswerThreshold is the longest previous answer echoed back as
	// feedback; zero disables the length check.
	LongAnswerThreshold int
}

func (h *ProgressiveHint) Name() string { return "progressive-hint" }

func (h *ProgressiveHint) Execute(ctx context.Context, job result.Job, params llm.SamplingParams) (out result.Outcome) {
	start := time.Now()
	out = result.NewOutcome(job, h.Name())
	defer func() { out.Elapsed = time.Since(start) }()

	ref := referenceValue(job)
	st := &hintState{phase: phaseInitial, maxHints: h.MaxHints}
	question := job.Question

	for !st.phase.terminal() {
		resp, err := h.Service.Generate(ctx, prompt.NShot(h.Shots, question), params)
		out.Trace.Attempts++
		if err != nil {
			out.Trace.HintState = st.phase.String()
			failService(&out, err)
			return out
		}
		out.Usage = out.Usage.Add(resp.Usage)

		raw, _ := answer.ExtractMarked(resp.Text)
		st.lastRaw = raw
		st.lastText = resp.Text
		st.lastValue = answer.Ptr(answer.ParseNumber(raw))

		st.advance(accepts(st.lastValue, ref))
		if st.phase == phaseHinting {
			hint := prompt.Hint(h.Templates, st.hint, raw, prompt.UsableAnswer(raw, h.LongAnswerThreshold))
			question = prompt.Hinted(job.Question, hint)
		}
	}

	out.Trace.HintState = st.phase.String()
	out.RawResponse = st.lastText
	judge(&out, st.lastText, ref)
	return out
}

// accepts decides whether an attempt ends the hint loop. Without a
// reference any well-formed numeric answer is final.
func accepts(predicted, ref *float64) bool {
	if predicted == nil {
		return false
	}
	if ref == nil {
		return true
	}
	return answer.Equal(predicted, ref)
}

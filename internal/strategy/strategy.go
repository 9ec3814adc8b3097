// Package strategy holds the prompting strategies benchmarked against the
// model. Every executor turns one job into exactly one outcome and never
// returns an error: failures are recorded on the outcome.
package strategy

import (
	"context"
	"errors"

	"github.com/signalnine/promptbench/internal/answer"
	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/result"
)

type Executor interface {
	Name() string
	Execute(ctx context.Context, job result.Job, params llm.SamplingParams) result.Outcome
}

var errNoAnswer = errors.New("no numeric answer after " + answer.Marker)

// referenceValue parses the numeric answer out of a reference solution.
func referenceValue(job result.Job) *float64 {
	return answer.Ptr(answer.Extract(job.Reference))
}

// judge sets prediction and correctness from a model response.
func judge(o *result.Outcome, text string, ref *float64) {
	o.Predicted = answer.Ptr(answer.Extract(text))
	if o.Predicted == nil {
		o.Fail(result.KindExtractionFailed, errNoAnswer, false)
		return
	}
	o.Correct = answer.Equal(o.Predicted, ref)
}

func failService(o *result.Outcome, err error) {
	o.Fail(string(llm.Classify(err)), err, llm.IsRetriable(err))
}

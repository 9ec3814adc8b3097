package result

import (
	"time"

	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/usage"
)

// Job is one question, identified by its position in the batch.
type Job struct {
	Index     int    `json:"index"`
	Question  string `json:"question"`
	Reference string `json:"reference"`
}

// Error kinds recorded on failed outcomes.
const (
	KindRateLimited      = string(llm.KindRateLimited)
	KindTransient        = string(llm.KindTransient)
	KindMalformed        = string(llm.KindMalformed)
	KindCanceled         = string(llm.KindCanceled)
	KindExtractionFailed = "answer_extraction_failed"
	KindCodeExecution    = "code_execution_error"
	KindCodeTimeout      = "code_execution_timeout"
	KindPanic            = "panic"
)

type ErrorInfo struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retriable bool   `json:"retriable"`
}

// Trace carries strategy-specific detail about how an outcome was reached.
type Trace struct {
	Attempts      int    `json:"attempts"`
	HintState     string `json:"hint_state,omitempty"`
	StrategyUsed  string `json:"strategy_used,omitempty"`
	FallbackUsed  bool   `json:"fallback_used,omitempty"`
	Code          string `json:"code,omitempty"`
	ProgramOutput string `json:"program_output,omitempty"`
	CodeError     string `json:"code_error,omitempty"`
}

type Outcome struct {
	Index       int           `json:"index"`
	Strategy    string        `json:"strategy"`
	Question    string        `json:"question"`
	Reference   string        `json:"reference"`
	Predicted   *float64      `json:"predicted_answer"`
	RawResponse string        `json:"raw_response,omitempty"`
	Usage       llm.Usage     `json:"usage"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Correct     bool          `json:"correct"`
	Error       *ErrorInfo    `json:"error"`
	Trace       Trace         `json:"trace"`
}

// NewOutcome starts an outcome for job with its identifying fields set.
func NewOutcome(job Job, strategy string) Outcome {
	return Outcome{
		Index:     job.Index,
		Strategy:  strategy,
		Question:  job.Question,
		Reference: job.Reference,
	}
}

// Fail records err on o and clears any prediction.
func (o *Outcome) Fail(kind string, err error, retriable bool) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	o.Predicted = nil
	o.Correct = false
	o.Error = &ErrorInfo{Kind: kind, Message: msg, Retriable: retriable}
}

// Failed reports whether the outcome carries no usable prediction.
func (o Outcome) Failed() bool { return o.Error != nil }

// StrategyMeta summarizes one strategy's pass over the dataset.
type StrategyMeta struct {
	RunID                 string             `json:"run_id"`
	Strategy              string             `json:"strategy"`
	Model                 string             `json:"model"`
	Sampling              llm.SamplingParams `json:"sampling"`
	StartedAt             time.Time          `json:"started_at"`
	Questions             int                `json:"questions"`
	Correct               int                `json:"correct"`
	Accuracy              float64            `json:"accuracy"`
	WallClockS            float64            `json:"wall_clock_s"`
	AvgSecondsPerQuestion float64            `json:"avg_seconds_per_question"`
	AvgJobSeconds         float64            `json:"avg_job_seconds"`
	Usage                 usage.Totals       `json:"usage"`
	AvgTokensPerQuestion  float64            `json:"avg_tokens_per_question"`
	CostUSD               float64            `json:"cost_usd"`
	Errors                int                `json:"errors"`
	ErrorRate             float64            `json:"error_rate"`
	ErrorKinds            map[string]int     `json:"error_kinds,omitempty"`
	FallbackRate          float64            `json:"fallback_rate,omitempty"`
}

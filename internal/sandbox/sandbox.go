// Package sandbox runs untrusted generated programs in a separate process
// or container with a hard wall-clock limit.
package sandbox

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// TimeoutExitCode is reported when a program is killed at its deadline.
const TimeoutExitCode = 124

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// OK reports a clean exit before the deadline.
func (r *Result) OK() bool { return r != nil && !r.TimedOut && r.ExitCode == 0 }

// Runner executes one program. An error means the program could not be
// run at all; program failures are reported in Result.
type Runner interface {
	Run(ctx context.Context, code string, timeout time.Duration) (*Result, error)
}

// Failure classes for programs that did not exit cleanly.
const (
	SyntaxError      = "syntax_error"
	NameError        = "name_error"
	TypeError        = "type_error"
	ValueError       = "value_error"
	IndentationError = "indentation_error"
	TimeoutError     = "timeout_error"
	UnknownError     = "unknown_error"
)

// Classify maps captured stderr to a failure class.
func Classify(stderr string, timedOut bool) string {
	if timedOut {
		return TimeoutError
	}
	switch {
	case strings.Contains(stderr, "SyntaxError"):
		return SyntaxError
	case strings.Contains(stderr, "NameError"):
		return NameError
	case strings.Contains(stderr, "TypeError"):
		return TypeError
	case strings.Contains(stderr, "ValueError"):
		return ValueError
	case strings.Contains(stderr, "IndentationError"):
		return IndentationError
	case strings.Contains(strings.ToLower(stderr), "timeout"):
		return TimeoutError
	}
	return UnknownError
}

var fenceRe = regexp.MustCompile("(?s)```python\\s*(.*?)\\s*```")

// ExtractCode pulls a program out of a model response: the first python
// fence, else every line from the first def/import/from onward, else the
// whole response.
func ExtractCode(response string) string {
	if m := fenceRe.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	lines := strings.Split(response, "\n")
	for i, line := range lines {
		s := strings.TrimSpace(line)
		if strings.HasPrefix(s, "def ") || strings.HasPrefix(s, "import ") || strings.HasPrefix(s, "from ") {
			return strings.Join(lines[i:], "\n")
		}
	}
	return response
}

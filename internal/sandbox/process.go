package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Process runs programs with a local interpreter. It enforces the timeout
// and removes its temp file but applies no further isolation.
type Process struct {
	// Interpreter is the command prefix; the script path is appended.
	Interpreter []string
	// TempDir holds scripts while they run; empty means os.TempDir().
	TempDir string
}

var DefaultInterpreter = []string{"python3"}

func (p *Process) Run(ctx context.Context, code string, timeout time.Duration) (*Result, error) {
	interp := p.Interpreter
	if len(interp) == 0 {
		interp = DefaultInterpreter
	}

	f, err := os.CreateTemp(p.TempDir, "program-*.py")
	if err != nil {
		return nil, fmt.Errorf("creating program file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing program file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing program file: %w", err)
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := append(append([]string{}, interp[1:]...), path)
	cmd := exec.CommandContext(runCtx, interp[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err = cmd.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runCtx.Err() != nil && ctx.Err() == nil {
		res.TimedOut = true
		res.ExitCode = TimeoutExitCode
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("running %s: %w", interp[0], err)
	}
	return res, nil
}

package doc2pub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/alnah/go-doc2pub/internal/process"
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// group was killed.
const waitDelay = 5 * time.Second

// RunResult holds the outcome of an external command.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner abstracts command execution to enable testing without real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (RunResult, error)
}

// ExecRunner implements CommandRunner using os/exec.
// Each command runs in its own process group; when ctx is done the whole
// group is killed.
type ExecRunner struct{}

// Run executes name with args. A non-zero exit returns the populated result
// together with a *ToolError.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	process.Isolate(cmd)
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			process.KillProcessGroup(cmd.Process.Pid)
		}
		return nil
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}
	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, &ToolError{Tool: name, ExitCode: res.ExitCode, Stderr: res.Stderr, Err: ctxErr}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ToolError{Tool: name, ExitCode: exitErr.ExitCode(), Stderr: res.Stderr, Err: err}
	}
	return res, &ToolError{Tool: name, ExitCode: -1, Stderr: res.Stderr, Err: fmt.Errorf("starting command: %w", err)}
}

// ToolError describes a failed external tool invocation.
// Stderr is kept verbatim for diagnostics.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// toolDetail extracts the verbatim stderr from err, if any.
func toolDetail(err error) string {
	var te *ToolError
	if errors.As(err, &te) {
		return strings.TrimRight(te.Stderr, "\n")
	}
	return ""
}

package upload

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"time"

	"permadeploy/internal/pd"
)

// killGrace bounds how long Run waits for output pipes after the child is
// killed on timeout.
const killGrace = 5 * time.Second

// ExecRunner runs external programs with os/exec.
type ExecRunner struct{}

var _ pd.CommandRunner = ExecRunner{}

// Run executes name with args and returns combined output. The child is
// killed when timeout elapses or ctx is cancelled.
func (ExecRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = killGrace
	out, err := cmd.CombinedOutput()
	if err == nil {
		return string(out), nil
	}

	te := &pd.ToolError{
		Tool:   filepath.Base(name),
		Args:   args,
		Output: string(out),
		Err:    err,
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		te.TimedOut = true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		te.ExitCode = exitErr.ExitCode()
	}
	return string(out), te
}

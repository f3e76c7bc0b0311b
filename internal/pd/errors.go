package pd

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by a publishing component wraps exactly
// one of these so callers can branch with errors.Is.
var (
	// ErrConfiguration indicates missing setup, such as no signing identity.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation indicates malformed input: key material, manifest inputs, paths.
	ErrValidation = errors.New("validation error")

	// ErrToolExecution indicates an external tool exited non-zero or timed out.
	ErrToolExecution = errors.New("tool execution failed")

	// ErrParse indicates tool output that no extraction strategy recognized.
	ErrParse = errors.New("unrecognized tool output")

	// ErrNetwork indicates a remote API timeout or non-2xx response.
	ErrNetwork = errors.New("network error")

	// ErrNotFound indicates a missing account or record.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indicates an address or id collision.
	ErrDuplicate = errors.New("duplicate")
)

// Identity errors.
var (
	ErrInvalidKeyFormat = fmt.Errorf("%w: key material is not a JSON key object", ErrValidation)
	ErrInvalidKeyFields = fmt.Errorf("%w: key material is missing required fields", ErrValidation)
	ErrDerivationFailed = fmt.Errorf("%w: cannot derive address from key material", ErrValidation)
	ErrDuplicateAccount = fmt.Errorf("%w: account with this address already exists", ErrDuplicate)
	ErrAccountNotFound  = fmt.Errorf("%w: account", ErrNotFound)
	ErrNoActiveAccount  = fmt.Errorf("%w: no active account; add one with 'permadeploy account add'", ErrConfiguration)
)

// ErrRecordNotFound is returned by the history store for unknown record ids.
var ErrRecordNotFound = fmt.Errorf("%w: deployment record", ErrNotFound)

// ToolError describes a failed invocation of an external upload tool.
// Output holds the combined stdout/stderr so the failure can be diagnosed.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	TimedOut bool
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Tool)
	switch {
	case e.TimedOut:
		b.WriteString(": timed out")
	case e.ExitCode != 0:
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if out := lastLines(e.Output, 5); out != "" {
		fmt.Fprintf(&b, "\n%s", out)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error { return e.Err }

func (e *ToolError) Is(target error) bool { return target == ErrToolExecution }

// ParseError reports tool output from which no content id could be extracted.
type ParseError struct {
	Tool   string
	Output string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: no content id in output: %s", e.Tool, lastLines(e.Output, 3))
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ToolOutput extracts the raw tool output carried by err, if any.
func ToolOutput(err error) string {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Output
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Output
	}
	return ""
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

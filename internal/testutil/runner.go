package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"permadeploy/internal/pd"
)

// Invocation is one recorded call to a FakeRunner.
type Invocation struct {
	Name    string
	Args    []string
	Timeout time.Duration
}

// HasFlag reports whether flag appears in the arguments.
func (inv Invocation) HasFlag(flag string) bool {
	for _, a := range inv.Args {
		if a == flag {
			return true
		}
	}
	return false
}

// FlagValue returns the argument following flag, or "".
func (inv Invocation) FlagValue(flag string) string {
	for i, a := range inv.Args {
		if a == flag && i+1 < len(inv.Args) {
			return inv.Args[i+1]
		}
	}
	return ""
}

// FakeRunner is a pd.CommandRunner that replays scripted responses.
// Respond is consulted for every call; when nil, calls succeed with no output.
type FakeRunner struct {
	Respond func(inv Invocation) (string, error)

	mu    sync.Mutex
	calls []Invocation
}

var _ pd.CommandRunner = (*FakeRunner)(nil)

func (f *FakeRunner) Run(_ context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	inv := Invocation{Name: name, Args: append([]string(nil), args...), Timeout: timeout}
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	respond := f.Respond
	f.mu.Unlock()

	if respond == nil {
		return "", nil
	}
	return respond(inv)
}

// Calls returns the recorded invocations.
func (f *FakeRunner) Calls() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Invocation(nil), f.calls...)
}

// CallsTo returns the invocations whose program name contains name.
func (f *FakeRunner) CallsTo(name string) []Invocation {
	var out []Invocation
	for _, c := range f.Calls() {
		if strings.Contains(c.Name, name) {
			out = append(out, c)
		}
	}
	return out
}

package testutil

import (
	"context"
	"strings"
	"sync"
)

// FakeRunner is a scripted execx.Runner for tests. Commands are keyed by
// the command name followed by its arguments, space separated; unknown
// commands fail the way a missing binary does.
type FakeRunner struct {
	mu sync.Mutex

	// Outputs maps "name arg1 arg2" to output returned with ok=true.
	Outputs map[string]string
	// Failures contains keys that exist but fail (ok=false).
	Failures map[string]bool
	// Binaries lists names Available reports as present.
	Binaries map[string]bool

	// Calls records every Run invocation in order.
	Calls []string
}

// NewFakeRunner creates an empty fake runner; all commands fail until scripted.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Outputs:  make(map[string]string),
		Failures: make(map[string]bool),
		Binaries: make(map[string]bool),
	}
}

// Script sets the output for a command line and marks its binary available.
func (f *FakeRunner) Script(key, output string) *FakeRunner {
	f.Outputs[key] = output
	name, _, _ := strings.Cut(key, " ")
	f.Binaries[name] = true
	return f
}

// Fail marks a command line as present but failing.
func (f *FakeRunner) Fail(key string) *FakeRunner {
	f.Failures[key] = true
	name, _, _ := strings.Cut(key, " ")
	f.Binaries[name] = true
	return f
}

// Run implements execx.Runner.
func (f *FakeRunner) Run(_ context.Context, name string, args ...string) (string, bool) {
	key := strings.TrimSpace(name + " " + strings.Join(args, " "))

	f.mu.Lock()
	f.Calls = append(f.Calls, key)
	f.mu.Unlock()

	if f.Failures[key] {
		return "", false
	}
	if out, ok := f.Outputs[key]; ok {
		return out, true
	}
	// fall back to the longest scripted prefix so tests don't have to spell
	// out every generated flag
	best := ""
	for scripted := range f.Outputs {
		if strings.HasPrefix(key, scripted) && len(scripted) > len(best) {
			best = scripted
		}
	}
	if best != "" {
		return f.Outputs[best], true
	}
	return "", false
}

// Available implements execx.Runner.
func (f *FakeRunner) Available(name string) bool {
	return f.Binaries[name]
}

package jj

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ScriptRunner is a deterministic Runner for tests. Responses are keyed by
// the full command line ("log -r @ ..."); every call is recorded.
type ScriptRunner struct {
	mu        sync.Mutex
	responses map[string]scriptResponse
	calls     []string
}

type scriptResponse struct {
	output string
	err    error
}

// NewScriptRunner creates an empty ScriptRunner
func NewScriptRunner() *ScriptRunner {
	return &ScriptRunner{responses: map[string]scriptResponse{}}
}

// Respond registers the output returned for an exact command line
func (r *ScriptRunner) Respond(commandLine, output string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[commandLine] = scriptResponse{output: output}
}

// Fail registers an error returned for an exact command line
func (r *ScriptRunner) Fail(commandLine string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[commandLine] = scriptResponse{err: err}
}

// Run returns the scripted response for the command, or an error when none
// was registered.
func (r *ScriptRunner) Run(_ context.Context, args ...string) (string, error) {
	key := strings.Join(args, " ")

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, key)

	resp, ok := r.responses[key]
	if !ok {
		return "", fmt.Errorf("no scripted response for: jj %s", key)
	}
	if resp.err != nil {
		return "", resp.err
	}
	return resp.output, nil
}

// Calls returns every command line executed so far
func (r *ScriptRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// WasCalled reports whether the exact command line was executed
func (r *ScriptRunner) WasCalled(commandLine string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, call := range r.calls {
		if call == commandLine {
			return true
		}
	}
	return false
}

// Package jj provides a wrapper around the jj command line tool for
// repository queries and mutations. All state lives in the jj repository
// itself; this package never caches anything across invocations.
package jj

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	jferrors "jflow.dev/jflow/internal/errors"
)

// DefaultCommandTimeout is the default timeout for jj commands
const DefaultCommandTimeout = 5 * time.Minute

// Runner handles execution of jj commands. The production implementation
// shells out to jj; tests use ScriptRunner with scripted responses.
type Runner interface {
	// Run executes a jj command and returns its trimmed stdout
	Run(ctx context.Context, args ...string) (string, error)
}

// CommandRunner executes real jj commands in a working directory
type CommandRunner struct {
	workingDir string
}

// NewCommandRunner creates a new CommandRunner
func NewCommandRunner(workingDir string) *CommandRunner {
	return &CommandRunner{workingDir: workingDir}
}

// SetWorkingDir sets the working directory for subsequent commands
func (r *CommandRunner) SetWorkingDir(dir string) {
	r.workingDir = dir
}

// GetWorkingDir returns the current working directory setting
func (r *CommandRunner) GetWorkingDir() string {
	return r.workingDir
}

// Run executes a jj command with the given context and returns the trimmed output
func (r *CommandRunner) Run(ctx context.Context, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// If no timeout/deadline is set in the context, add the default one
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCommandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "jj", args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", jferrors.NewJJCommandError(args, stdout.String(), stderr.String(), ctx.Err())
		}
		return "", jferrors.NewJJCommandError(args, stdout.String(), stderr.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// IsAvailable reports whether the jj binary can be executed at all
func IsAvailable() bool {
	return exec.Command("jj", "--version").Run() == nil
}

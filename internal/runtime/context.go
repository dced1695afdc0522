// Package runtime provides a context type that holds the jj gateway, review
// host client, configuration and logger for use throughout the application.
// This avoids passing multiple parameters.
package runtime

import (
	"context"
	"fmt"

	"jflow.dev/jflow/internal/config"
	jferrors "jflow.dev/jflow/internal/errors"
	"jflow.dev/jflow/internal/github"
	"jflow.dev/jflow/internal/jj"
	"jflow.dev/jflow/internal/tui"
)

// Context provides access to the backends and output for commands
type Context struct {
	Gateway  jj.Gateway
	GitHub   github.Client
	Config   *config.Config
	Splog    *tui.Splog
	RepoRoot string
}

// NewContext creates a context around an existing gateway, for tests and
// callers that wire their own backends
func NewContext(gw jj.Gateway, cfg *config.Config) *Context {
	return &Context{
		Gateway: gw,
		Config:  cfg,
		Splog:   tui.NewSplog(),
	}
}

// GetContext builds the runtime context for a command invocation: locate the
// repository, load configuration, and connect the review host client. A
// missing or unauthenticated review host is not fatal; GitHub stays nil and
// commands degrade to local-only behavior.
func GetContext() (*Context, error) {
	if !jj.IsAvailable() {
		return nil, fmt.Errorf("jj executable not found in PATH")
	}

	gw := jj.NewDefaultClient()

	repoRoot, err := gw.Root(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%w: run jflow inside a jj repository", jferrors.ErrNotARepository)
	}

	cfg, err := config.Load(repoRoot)
	if err != nil {
		return nil, err
	}

	splog, err := tui.NewSplogWithLogFile(tui.GetLogFilePath())
	if err != nil {
		splog = tui.NewSplog()
	}

	rtx := &Context{
		Gateway:  gw,
		Config:   cfg,
		Splog:    splog,
		RepoRoot: repoRoot,
	}

	// Best effort: no token or no recognizable remote just means review
	// host features are unavailable this run.
	ghClient, err := github.NewRealClient(context.Background(), repoRoot, cfg.Remote.Name)
	if err == nil {
		rtx.GitHub = ghClient
	} else {
		splog.Debug("review host unavailable: %v", err)
	}

	return rtx, nil
}

// Close releases resources held by the context
func (c *Context) Close() error {
	if c.Splog != nil {
		return c.Splog.Close()
	}
	return nil
}

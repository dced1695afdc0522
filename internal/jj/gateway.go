package jj

import (
	"context"
	"fmt"
	"strings"

	jferrors "jflow.dev/jflow/internal/errors"
)

// Gateway exposes the jj operations jflow needs. It is a pure adapter with no
// business logic; the engine decides what to call and in which order. Tests
// substitute a deterministic implementation.
type Gateway interface {
	// Root returns the repository root, or ErrNotARepository
	Root(ctx context.Context) (string, error)
	// QueryChanges returns the changes selected by revset, in jj's own order
	QueryChanges(ctx context.Context, revset string) ([]Change, error)
	// ListBookmarks returns all local bookmarks with tracking state against remote
	ListBookmarks(ctx context.Context, remote string) ([]Bookmark, error)
	// WorkingCopyID returns the change ID of the working copy
	WorkingCopyID(ctx context.Context) (string, error)
	// IsAncestor reports whether ancestor is an ancestor of descendant (inclusive)
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
	// RevisionExists reports whether a revision resolves in this repository
	RevisionExists(ctx context.Context, revision string) (bool, error)

	// UserName returns the configured user name from jj config
	UserName(ctx context.Context) (string, error)

	CreateBookmark(ctx context.Context, name, revision string) error
	MoveBookmark(ctx context.Context, name, revision string) error
	DeleteBookmark(ctx context.Context, name string) error
	// TrackBookmark starts tracking a remote-only bookmark locally
	TrackBookmark(ctx context.Context, name, remote string) error
	Push(ctx context.Context, name, remote string, opts PushOptions) error
	// PushNamed creates a bookmark at revision and pushes it in one step
	PushNamed(ctx context.Context, name, revision, remote string) error
	Fetch(ctx context.Context, remote string) error
	// Rebase moves the whole current stack onto destination
	Rebase(ctx context.Context, destination string) error
	// RebaseSource moves source and its descendants onto destination
	RebaseSource(ctx context.Context, source, destination string) error
	// RebaseRevision moves a single revision onto destination, reparenting
	// its descendants onto the revision's former parents
	RebaseRevision(ctx context.Context, revision, destination string) error
	// Edit makes revision the working copy
	Edit(ctx context.Context, revision string) error
	// ConflictedChanges returns the change IDs currently carrying conflicts
	ConflictedChanges(ctx context.Context) ([]string, error)
}

// Client implements Gateway by shelling out through a Runner
type Client struct {
	runner Runner
}

// NewClient creates a Gateway backed by the given runner
func NewClient(runner Runner) *Client {
	return &Client{runner: runner}
}

// NewDefaultClient creates a Gateway running jj in the current directory
func NewDefaultClient() *Client {
	return NewClient(NewCommandRunner(""))
}

func (c *Client) Root(ctx context.Context) (string, error) {
	root, err := c.runner.Run(ctx, "root")
	if err != nil {
		return "", fmt.Errorf("%w: %v", jferrors.ErrNotARepository, err)
	}
	return root, nil
}

func (c *Client) QueryChanges(ctx context.Context, revset string) ([]Change, error) {
	output, err := c.runner.Run(ctx, "log", "-r", revset, "-T", changeTemplate, "--no-graph")
	if err != nil {
		return nil, err
	}
	return parseChanges(output)
}

func (c *Client) ListBookmarks(ctx context.Context, remote string) ([]Bookmark, error) {
	output, err := c.runner.Run(ctx, "bookmark", "list", "--all", "-T", bookmarkTemplate)
	if err != nil {
		return nil, err
	}
	entries, err := parseBookmarkEntries(output)
	if err != nil {
		return nil, err
	}
	return assembleBookmarks(entries, remote), nil
}

func (c *Client) WorkingCopyID(ctx context.Context) (string, error) {
	return c.runner.Run(ctx, "log", "-r", "@", "-T", "change_id", "--no-graph")
}

func (c *Client) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	revset := fmt.Sprintf("%s & ::%s", ancestor, descendant)
	output, err := c.runner.Run(ctx, "log", "-r", revset, "-T", "commit_id", "--no-graph", "--limit", "1")
	if err != nil {
		return false, err
	}
	return output != "", nil
}

func (c *Client) RevisionExists(ctx context.Context, revision string) (bool, error) {
	_, err := c.runner.Run(ctx, "log", "-r", revision, "--limit", "1", "--no-graph", "-T", "''")
	if err != nil {
		// jj exits non-zero for unknown revisions; that is the signal here,
		// not a failure of the query surface.
		return false, nil
	}
	return true, nil
}

func (c *Client) CreateBookmark(ctx context.Context, name, revision string) error {
	_, err := c.runner.Run(ctx, "bookmark", "create", name, "-r", revision)
	return err
}

func (c *Client) MoveBookmark(ctx context.Context, name, revision string) error {
	// Amended commits are siblings of the old target, so sideways moves are
	// the normal case here.
	_, err := c.runner.Run(ctx, "bookmark", "set", name, "-r", revision, "--allow-backwards")
	return err
}

func (c *Client) DeleteBookmark(ctx context.Context, name string) error {
	_, err := c.runner.Run(ctx, "bookmark", "delete", name)
	return err
}

func (c *Client) TrackBookmark(ctx context.Context, name, remote string) error {
	_, err := c.runner.Run(ctx, "bookmark", "track", fmt.Sprintf("%s@%s", name, remote))
	return err
}

func (c *Client) Push(ctx context.Context, name, remote string, opts PushOptions) error {
	args := []string{"git", "push", "--remote", remote, "--bookmark", name}
	if opts.AllowNew {
		args = append(args, "--allow-new")
	}
	_, err := c.runner.Run(ctx, args...)
	if err != nil {
		if cmdErr, ok := err.(*jferrors.JJCommandError); ok && isStaleRemoteInfo(cmdErr.Stderr) {
			return jferrors.NewBookmarkConflictError(name, "", "")
		}
		return err
	}
	return nil
}

// isStaleRemoteInfo recognizes jj's refusal to push a bookmark whose remote
// position changed between our query and the push.
func isStaleRemoteInfo(stderr string) bool {
	return strings.Contains(stderr, "unexpectedly moved") ||
		strings.Contains(stderr, "stale info")
}

func (c *Client) UserName(ctx context.Context) (string, error) {
	return c.runner.Run(ctx, "config", "get", "user.name")
}

func (c *Client) PushNamed(ctx context.Context, name, revision, remote string) error {
	_, err := c.runner.Run(ctx, "git", "push", "--remote", remote, "--named", fmt.Sprintf("%s=%s", name, revision))
	return err
}

func (c *Client) Fetch(ctx context.Context, remote string) error {
	_, err := c.runner.Run(ctx, "git", "fetch", "--remote", remote)
	if err != nil {
		return fmt.Errorf("%w: %v", jferrors.ErrRemoteUnavailable, err)
	}
	return nil
}

func (c *Client) Rebase(ctx context.Context, destination string) error {
	_, err := c.runner.Run(ctx, "rebase", "-d", destination)
	return err
}

func (c *Client) RebaseSource(ctx context.Context, source, destination string) error {
	_, err := c.runner.Run(ctx, "rebase", "-s", source, "-d", destination)
	return err
}

func (c *Client) RebaseRevision(ctx context.Context, revision, destination string) error {
	_, err := c.runner.Run(ctx, "rebase", "-r", revision, "-d", destination)
	return err
}

func (c *Client) Edit(ctx context.Context, revision string) error {
	_, err := c.runner.Run(ctx, "edit", revision)
	return err
}

func (c *Client) ConflictedChanges(ctx context.Context) ([]string, error) {
	output, err := c.runner.Run(ctx, "log", "-r", "conflicts()", "-T", `change_id ++ "\n"`, "--no-graph")
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			ids = append(ids, line)
		}
	}
	return ids, nil
}

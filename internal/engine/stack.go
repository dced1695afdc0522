// Package engine implements the stack reconciliation and landing engine.
// Every command starts by building a fresh Stack snapshot from live jj
// queries ("query, don't track"); nothing is persisted or cached across
// invocations. Planners and executors consume the snapshot read-only.
package engine

import (
	"context"
	"errors"
	"fmt"

	"jflow.dev/jflow/internal/config"
	jferrors "jflow.dev/jflow/internal/errors"
	"jflow.dev/jflow/internal/jj"
)

// ChangeStatus is one change in the stack with its associated bookmarks
type ChangeStatus struct {
	Change    jj.Change
	Bookmarks []jj.Bookmark
	IsWorking bool
}

// Bookmarked reports whether the change has at least one bookmark
func (c ChangeStatus) Bookmarked() bool {
	return len(c.Bookmarks) > 0
}

// Stack is the root-first ordered sequence of changes between the primary
// branch and the working copy, inclusive of the working copy. It is a single
// consistent snapshot: all fields are filled before any mutation in the
// command that built it.
type Stack struct {
	// Changes in root-first topological order
	Changes []ChangeStatus
	// PrimaryRef is the resolved primary branch reference, e.g. "main@origin"
	PrimaryRef string
	// Remote is the configured remote name
	Remote string
	// WorkingCopyID is the change ID of the working copy
	WorkingCopyID string
	// RemoteIsAncestor records, per tracked bookmark name, whether the
	// remote-tracked commit is an ancestor of its change's current commit.
	// This is what append-style pushes check.
	RemoteIsAncestor map[string]bool
}

// IsEmpty reports whether the stack holds no changes
func (s *Stack) IsEmpty() bool {
	return len(s.Changes) == 0
}

// FindChange locates a change by change ID or unique prefix
func (s *Stack) FindChange(id string) *ChangeStatus {
	var found *ChangeStatus
	for i := range s.Changes {
		cs := &s.Changes[i]
		if cs.Change.ChangeID == id {
			return cs
		}
		if len(id) >= 4 && len(cs.Change.ChangeID) > len(id) && cs.Change.ChangeID[:len(id)] == id {
			if found != nil {
				return nil // ambiguous prefix
			}
			found = cs
		}
	}
	return found
}

// BaseBookmarkFor returns the nearest bookmark on a change strictly below
// the given index, or "" when the change sits on the bottom of the stack.
// Used to pick the base branch for new review requests.
func (s *Stack) BaseBookmarkFor(index int) string {
	for i := index - 1; i >= 0; i-- {
		if len(s.Changes[i].Bookmarks) > 0 {
			return s.Changes[i].Bookmarks[0].Name
		}
	}
	return ""
}

// ResolvePrimaryRef picks the best available primary branch reference:
// primary@remote, then the local primary bookmark, then root().
func ResolvePrimaryRef(ctx context.Context, gw jj.Gateway, cfg *config.Config) (string, error) {
	remoteRef := cfg.RemoteRef()
	exists, err := gw.RevisionExists(ctx, remoteRef)
	if err != nil {
		return "", err
	}
	if exists {
		return remoteRef, nil
	}

	exists, err = gw.RevisionExists(ctx, cfg.Remote.Primary)
	if err != nil {
		return "", err
	}
	if exists {
		return cfg.Remote.Primary, nil
	}

	return "root()", nil
}

// RequirePrimaryRef is the strict variant used before rebasing: it never
// falls back to root(), failing instead when the primary branch is missing.
func RequirePrimaryRef(ctx context.Context, gw jj.Gateway, cfg *config.Config) (string, error) {
	ref, err := ResolvePrimaryRef(ctx, gw, cfg)
	if err != nil {
		return "", err
	}
	if ref == "root()" {
		return "", fmt.Errorf("%w: %s", jferrors.ErrNoPrimaryBranch, cfg.Remote.Primary)
	}
	return ref, nil
}

// BuildStack assembles the stack snapshot from live queries. The returned
// Stack is the only state subsequent planning and execution read from.
func BuildStack(ctx context.Context, gw jj.Gateway, cfg *config.Config) (*Stack, error) {
	primaryRef, err := ResolvePrimaryRef(ctx, gw, cfg)
	if err != nil {
		return nil, err
	}

	revset := cfg.StackRevset(primaryRef)
	changes, err := gw.QueryChanges(ctx, revset)
	if err != nil {
		return nil, wrapQueryError(err)
	}

	bookmarks, err := gw.ListBookmarks(ctx, cfg.Remote.Name)
	if err != nil {
		return nil, wrapQueryError(err)
	}

	workingID, err := gw.WorkingCopyID(ctx)
	if err != nil {
		return nil, wrapQueryError(err)
	}

	stack := &Stack{
		Changes:          make([]ChangeStatus, 0, len(changes)),
		PrimaryRef:       primaryRef,
		Remote:           cfg.Remote.Name,
		WorkingCopyID:    workingID,
		RemoteIsAncestor: map[string]bool{},
	}

	// jj log emits descendants first; the stack is root-first.
	for i := len(changes) - 1; i >= 0; i-- {
		change := changes[i]

		cs := ChangeStatus{
			Change:    change,
			IsWorking: change.ChangeID == workingID,
		}
		for _, b := range bookmarks {
			if b.ChangeID == change.ChangeID {
				cs.Bookmarks = append(cs.Bookmarks, b)
			}
		}
		stack.Changes = append(stack.Changes, cs)
	}

	// Resolve remote ancestry for tracked bookmarks against the change's
	// current commit, while the snapshot is still consistent.
	for _, cs := range stack.Changes {
		for _, b := range cs.Bookmarks {
			if b.Tracking == jj.TrackingAbsent || b.RemoteCommitID == "" {
				continue
			}
			anc, err := gw.IsAncestor(ctx, b.RemoteCommitID, cs.Change.CommitID)
			if err != nil {
				return nil, wrapQueryError(err)
			}
			stack.RemoteIsAncestor[b.Name] = anc
		}
	}

	return stack, nil
}

// wrapQueryError maps backend command failures onto NotARepository while
// letting shape-validation errors through untouched.
func wrapQueryError(err error) error {
	if errors.Is(err, jferrors.ErrQueryParse) {
		return err
	}
	return fmt.Errorf("%w: %v", jferrors.ErrNotARepository, err)
}

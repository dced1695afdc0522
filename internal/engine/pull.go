package engine

import (
	"context"

	"jflow.dev/jflow/internal/config"
	jferrors "jflow.dev/jflow/internal/errors"
	"jflow.dev/jflow/internal/jj"
)

// PullResult reports what a pull run did
type PullResult struct {
	// PrimaryRef is the rebase destination after the fetch
	PrimaryRef string
	// Rebased is false when the stack was already based on the primary
	// position or the rebase was skipped
	Rebased bool
}

// PullStack fetches from the remote, then rebases the stack onto the updated
// primary branch position. A failed fetch aborts before any mutation. Rebase
// conflicts are reported with their change IDs and left in jj's own
// paused-conflict state for manual resolution.
func PullStack(ctx context.Context, gw jj.Gateway, cfg *config.Config) (*PullResult, error) {
	if err := gw.Fetch(ctx, cfg.Remote.Name); err != nil {
		return nil, err
	}

	primaryRef, err := RequirePrimaryRef(ctx, gw, cfg)
	if err != nil {
		return nil, err
	}

	if err := gw.Rebase(ctx, primaryRef); err != nil {
		return nil, err
	}

	// jj records conflicts in the commits rather than failing the rebase;
	// surface them as the command's error.
	conflicted, err := gw.ConflictedChanges(ctx)
	if err != nil {
		return nil, err
	}
	if len(conflicted) > 0 {
		return &PullResult{PrimaryRef: primaryRef, Rebased: true},
			jferrors.NewRebaseConflictError(conflicted, "")
	}

	return &PullResult{PrimaryRef: primaryRef, Rebased: true}, nil
}

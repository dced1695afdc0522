package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"jflow.dev/jflow/internal/config"
	jferrors "jflow.dev/jflow/internal/errors"
	"jflow.dev/jflow/internal/jj"
)

func syncTestStack() *Stack {
	return &Stack{
		Remote:           "origin",
		PrimaryRef:       "main@origin",
		RemoteIsAncestor: map[string]bool{},
		Changes: []ChangeStatus{
			{
				Change: jj.Change{ChangeID: "botchange", CommitID: "c1"},
				Bookmarks: []jj.Bookmark{
					{Name: "feature-base", ChangeID: "botchange", CommitID: "c1", Tracking: jj.TrackingSynced},
				},
			},
			{
				Change: jj.Change{ChangeID: "topchange", CommitID: "c2new"},
				Bookmarks: []jj.Bookmark{
					{Name: "feature-top", ChangeID: "topchange", CommitID: "c2old", Tracking: jj.TrackingAhead, RemoteCommitID: "r2"},
				},
			},
		},
	}
}

func TestSyncStack(t *testing.T) {
	t.Parallel()

	t.Run("moves and pushes stale bookmarks, skips current ones", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		stack := syncTestStack()
		stack.RemoteIsAncestor["feature-top"] = true

		result := SyncStack(context.Background(), gw, stack, SyncOptions{PushStyle: config.PushStyleSquash})
		require.NoError(t, result.Err())
		require.Equal(t, 1, result.Moves())
		require.Equal(t, 1, result.Pushes())

		require.Equal(t, []string{"feature-top@topchange"}, gw.moved)
		require.Equal(t, []string{"feature-top"}, gw.pushed)

		require.True(t, result.Results[0].UpToDate)
		require.False(t, result.Results[1].UpToDate)
	})

	t.Run("second run does nothing", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		stack := syncTestStack()
		// After a successful sync the bookmark points at the change's commit
		// and is synced with the remote.
		stack.Changes[1].Bookmarks[0].CommitID = "c2new"
		stack.Changes[1].Bookmarks[0].Tracking = jj.TrackingSynced

		result := SyncStack(context.Background(), gw, stack, SyncOptions{PushStyle: config.PushStyleSquash})
		require.NoError(t, result.Err())
		require.Zero(t, result.Moves())
		require.Zero(t, result.Pushes())
		require.Empty(t, gw.moved)
		require.Empty(t, gw.pushed)
	})

	t.Run("untracked bookmarks push with allow-new", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		stack := &Stack{
			Remote:           "origin",
			RemoteIsAncestor: map[string]bool{},
			Changes: []ChangeStatus{{
				Change: jj.Change{ChangeID: "botchange", CommitID: "c1"},
				Bookmarks: []jj.Bookmark{
					{Name: "feature-new", ChangeID: "botchange", CommitID: "c1", Tracking: jj.TrackingAbsent},
				},
			}},
		}

		result := SyncStack(context.Background(), gw, stack, SyncOptions{PushStyle: config.PushStyleSquash})
		require.NoError(t, result.Err())
		require.Equal(t, []string{"feature-new (new)"}, gw.pushed)
	})

	t.Run("dry run mutates nothing", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		stack := syncTestStack()
		stack.RemoteIsAncestor["feature-top"] = true

		result := SyncStack(context.Background(), gw, stack, SyncOptions{DryRun: true, PushStyle: config.PushStyleSquash})
		require.Equal(t, 1, result.Moves())
		require.Equal(t, 1, result.Pushes())
		require.Empty(t, gw.moved)
		require.Empty(t, gw.pushed)
	})

	t.Run("append style refuses non-linear pushes but not the rest", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		stack := syncTestStack()
		// feature-top's remote commit is not an ancestor of the new commit.
		stack.RemoteIsAncestor["feature-top"] = false
		// Give feature-base work to do so the isolation is observable.
		stack.Changes[0].Bookmarks[0].Tracking = jj.TrackingAhead
		stack.RemoteIsAncestor["feature-base"] = true

		result := SyncStack(context.Background(), gw, stack, SyncOptions{PushStyle: config.PushStyleAppend})
		require.Error(t, result.Err())
		require.ErrorIs(t, result.Err(), jferrors.ErrPartialFailure)

		require.ErrorIs(t, result.Results[1].Err, jferrors.ErrNonLinearHistory)
		require.Equal(t, []string{"feature-base"}, gw.pushed)
		require.Empty(t, gw.moved)
	})

	t.Run("push failures are isolated per bookmark", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		gw.pushErr["feature-top"] = errors.New("remote hung up")
		stack := syncTestStack()
		stack.RemoteIsAncestor["feature-top"] = true
		stack.Changes[0].Bookmarks[0].Tracking = jj.TrackingAhead
		stack.RemoteIsAncestor["feature-base"] = true

		result := SyncStack(context.Background(), gw, stack, SyncOptions{PushStyle: config.PushStyleSquash})
		require.ErrorIs(t, result.Err(), jferrors.ErrPartialFailure)
		require.Equal(t, []string{"feature-base"}, gw.pushed)
		require.Error(t, result.Results[1].Err)
		require.NoError(t, result.Results[0].Err)
	})

	t.Run("failed move skips the push", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		gw.moveErr["feature-top"] = errors.New("bookmark is read-only")
		stack := syncTestStack()
		stack.RemoteIsAncestor["feature-top"] = true

		result := SyncStack(context.Background(), gw, stack, SyncOptions{PushStyle: config.PushStyleSquash})
		require.ErrorIs(t, result.Err(), jferrors.ErrPartialFailure)
		require.Empty(t, gw.pushed)
	})
}

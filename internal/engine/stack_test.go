package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"jflow.dev/jflow/internal/config"
	jferrors "jflow.dev/jflow/internal/errors"
	"jflow.dev/jflow/internal/jj"
)

func TestBuildStack(t *testing.T) {
	t.Parallel()

	t.Run("orders changes root first", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		// jj log emits descendants first.
		gw.changes = []jj.Change{
			{ChangeID: "topchange", CommitID: "c3"},
			{ChangeID: "midchange", CommitID: "c2"},
			{ChangeID: "botchange", CommitID: "c1"},
		}
		gw.workingID = "topchange"

		stack, err := BuildStack(context.Background(), gw, config.Default())
		require.NoError(t, err)
		require.Len(t, stack.Changes, 3)
		require.Equal(t, "botchange", stack.Changes[0].Change.ChangeID)
		require.Equal(t, "topchange", stack.Changes[2].Change.ChangeID)
		require.True(t, stack.Changes[2].IsWorking)
		require.False(t, stack.Changes[0].IsWorking)
		require.Equal(t, "main@origin", stack.PrimaryRef)
	})

	t.Run("attaches bookmarks by change id", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		gw.changes = []jj.Change{
			{ChangeID: "topchange", CommitID: "c2"},
			{ChangeID: "botchange", CommitID: "c1"},
		}
		gw.bookmarks = []jj.Bookmark{
			{Name: "feature-auth", ChangeID: "botchange", CommitID: "c1", Tracking: jj.TrackingSynced},
			{Name: "unrelated", ChangeID: "elsewhere", CommitID: "c9"},
		}
		gw.workingID = "topchange"

		stack, err := BuildStack(context.Background(), gw, config.Default())
		require.NoError(t, err)
		require.True(t, stack.Changes[0].Bookmarked())
		require.Equal(t, "feature-auth", stack.Changes[0].Bookmarks[0].Name)
		require.False(t, stack.Changes[1].Bookmarked())
	})

	t.Run("resolves remote ancestry for tracked bookmarks", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		gw.changes = []jj.Change{{ChangeID: "botchange", CommitID: "c2"}}
		gw.bookmarks = []jj.Bookmark{
			{Name: "feature-auth", ChangeID: "botchange", CommitID: "c1", Tracking: jj.TrackingAhead, RemoteCommitID: "r1"},
		}
		gw.workingID = "botchange"
		gw.ancestors["r1::c2"] = true

		stack, err := BuildStack(context.Background(), gw, config.Default())
		require.NoError(t, err)
		require.True(t, stack.RemoteIsAncestor["feature-auth"])
	})

	t.Run("empty stack", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		gw.workingID = "workingchange"

		stack, err := BuildStack(context.Background(), gw, config.Default())
		require.NoError(t, err)
		require.True(t, stack.IsEmpty())
	})
}

func TestResolvePrimaryRef(t *testing.T) {
	t.Parallel()

	t.Run("prefers the remote ref", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		ref, err := ResolvePrimaryRef(context.Background(), gw, config.Default())
		require.NoError(t, err)
		require.Equal(t, "main@origin", ref)
	})

	t.Run("falls back to the local bookmark", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		gw.revisions = map[string]bool{"main": true}

		ref, err := ResolvePrimaryRef(context.Background(), gw, config.Default())
		require.NoError(t, err)
		require.Equal(t, "main", ref)
	})

	t.Run("falls back to root()", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		gw.revisions = map[string]bool{}

		ref, err := ResolvePrimaryRef(context.Background(), gw, config.Default())
		require.NoError(t, err)
		require.Equal(t, "root()", ref)
	})

	t.Run("require variant refuses root()", func(t *testing.T) {
		t.Parallel()

		gw := newStubGateway()
		gw.revisions = map[string]bool{}

		_, err := RequirePrimaryRef(context.Background(), gw, config.Default())
		require.ErrorIs(t, err, jferrors.ErrNoPrimaryBranch)
	})
}

func TestFindChange(t *testing.T) {
	t.Parallel()

	stack := &Stack{Changes: []ChangeStatus{
		{Change: jj.Change{ChangeID: "wwqqnnrrssttuuvv"}},
		{Change: jj.Change{ChangeID: "wwxxyyzzaabbccdd"}},
	}}

	t.Run("exact match", func(t *testing.T) {
		t.Parallel()
		cs := stack.FindChange("wwqqnnrrssttuuvv")
		require.NotNil(t, cs)
		require.Equal(t, "wwqqnnrrssttuuvv", cs.Change.ChangeID)
	})

	t.Run("unique prefix", func(t *testing.T) {
		t.Parallel()
		cs := stack.FindChange("wwqq")
		require.NotNil(t, cs)
		require.Equal(t, "wwqqnnrrssttuuvv", cs.Change.ChangeID)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		t.Parallel()
		require.Nil(t, stack.FindChange("ww"))
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()
		require.Nil(t, stack.FindChange("zzzzzzzz"))
	})
}

func TestBaseBookmarkFor(t *testing.T) {
	t.Parallel()

	stack := &Stack{Changes: []ChangeStatus{
		{Change: jj.Change{ChangeID: "botchange"}, Bookmarks: []jj.Bookmark{{Name: "feature-base"}}},
		{Change: jj.Change{ChangeID: "midchange"}},
		{Change: jj.Change{ChangeID: "topchange"}},
	}}

	require.Equal(t, "", stack.BaseBookmarkFor(0))
	require.Equal(t, "feature-base", stack.BaseBookmarkFor(1))
	require.Equal(t, "feature-base", stack.BaseBookmarkFor(2))
}

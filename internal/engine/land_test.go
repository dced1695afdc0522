package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	jferrors "jflow.dev/jflow/internal/errors"
	"jflow.dev/jflow/internal/github"
	"jflow.dev/jflow/internal/jj"
)

// landTestStack builds a three-change stack with bookmarks on the bottom two
// changes.
func landTestStack() *Stack {
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
				Change: jj.Change{ChangeID: "midchange", CommitID: "c2"},
				Bookmarks: []jj.Bookmark{
					{Name: "feature-mid", ChangeID: "midchange", CommitID: "c2", Tracking: jj.TrackingSynced},
				},
			},
			{
				Change: jj.Change{ChangeID: "topchange", CommitID: "c3"},
			},
		},
	}
}

func TestPlanLand(t *testing.T) {
	t.Parallel()

	t.Run("lands the merged bottom and stops at the first open request", func(t *testing.T) {
		t.Parallel()

		reviews := map[string]*github.ReviewRequest{
			"feature-base": {Number: 1, State: github.StateMerged, Base: "main", Head: "feature-base"},
			"feature-mid":  {Number: 2, State: github.StateOpen, Base: "feature-base", Head: "feature-mid"},
		}

		plan := PlanLand(landTestStack(), reviews, "main", "main@origin", "")
		require.False(t, plan.IsEmpty())
		require.Equal(t, []string{"feature-base"}, plan.LandedBookmarks)
		require.Equal(t, []string{"midchange", "topchange"}, plan.RemainingChanges)

		require.Len(t, plan.Actions, 3)
		require.Equal(t, ActionDeleteBookmark, plan.Actions[0].Kind)
		require.Equal(t, ActionRebaseSubtree, plan.Actions[1].Kind)
		require.Equal(t, "midchange", plan.Actions[1].FromChange)
		require.Equal(t, "main@origin", plan.Actions[1].Onto)
		// The open request based on the landed bookmark is retargeted.
		require.Equal(t, ActionRetargetRequest, plan.Actions[2].Kind)
		require.Equal(t, 2, plan.Actions[2].Request)
		require.Equal(t, "main", plan.Actions[2].NewBase)
	})

	t.Run("lands consecutive merged changes together", func(t *testing.T) {
		t.Parallel()

		reviews := map[string]*github.ReviewRequest{
			"feature-base": {Number: 1, State: github.StateMerged, Head: "feature-base"},
			"feature-mid":  {Number: 2, State: github.StateMerged, Head: "feature-mid"},
		}

		plan := PlanLand(landTestStack(), reviews, "main", "main@origin", "")
		require.Equal(t, []string{"feature-base", "feature-mid"}, plan.LandedBookmarks)
		require.Equal(t, []string{"topchange"}, plan.RemainingChanges)
	})

	t.Run("unknown review state blocks landing", func(t *testing.T) {
		t.Parallel()

		reviews := map[string]*github.ReviewRequest{
			"feature-mid": {Number: 2, State: github.StateMerged, Head: "feature-mid"},
		}

		// feature-base has no known request, so nothing above it can land.
		plan := PlanLand(landTestStack(), reviews, "main", "main@origin", "")
		require.True(t, plan.IsEmpty())
	})

	t.Run("only filter restricts the plan to one bookmark", func(t *testing.T) {
		t.Parallel()

		reviews := map[string]*github.ReviewRequest{
			"feature-base": {Number: 1, State: github.StateMerged, Head: "feature-base"},
			"feature-mid":  {Number: 2, State: github.StateMerged, Head: "feature-mid"},
		}

		plan := PlanLand(landTestStack(), reviews, "main", "main@origin", "feature-base")
		require.Equal(t, []string{"feature-base"}, plan.LandedBookmarks)
	})

	t.Run("changes without bookmarks pass through", func(t *testing.T) {
		t.Parallel()

		stack := &Stack{Changes: []ChangeStatus{
			{Change: jj.Change{ChangeID: "plainchange", CommitID: "c0"}},
			{
				Change: jj.Change{ChangeID: "botchange", CommitID: "c1"},
				Bookmarks: []jj.Bookmark{
					{Name: "feature-base", ChangeID: "botchange", CommitID: "c1"},
				},
			},
		}}
		reviews := map[string]*github.ReviewRequest{
			"feature-base": {Number: 1, State: github.StateMerged, Head: "feature-base"},
		}

		plan := PlanLand(stack, reviews, "main", "main@origin", "")
		require.Equal(t, []string{"feature-base"}, plan.LandedBookmarks)
		require.Empty(t, plan.RemainingChanges)
	})
}

func TestExecuteLand(t *testing.T) {
	t.Parallel()

	t.Run("full run produces the expected summary", func(t *testing.T) {
		t.Parallel()

		reviews := map[string]*github.ReviewRequest{
			"feature-base": {Number: 1, State: github.StateMerged, Base: "main", Head: "feature-base"},
			"feature-mid":  {Number: 2, State: github.StateOpen, Base: "feature-base", Head: "feature-mid"},
		}
		plan := PlanLand(landTestStack(), reviews, "main", "main@origin", "")

		gw := newStubGateway()
		client := github.NewFakeClient()

		result := ExecuteLand(context.Background(), gw, client, plan, "origin")
		require.NoError(t, result.Err())

		require.Equal(t, []string{"feature-base"}, gw.deleted)
		// Deleting locally then pushing propagates the deletion.
		require.Equal(t, []string{"feature-base"}, gw.pushed)
		require.Equal(t, []string{"midchange -> main@origin"}, gw.rebased)
		require.Equal(t, map[int]string{2: "main"}, client.Retargeted)

		require.Equal(t, "1 bookmark deleted, 2 changes rebased, 1 request retargeted", result.Summary())
	})

	t.Run("three bookmarks, bottom merged", func(t *testing.T) {
		t.Parallel()

		stack := &Stack{
			Remote:           "origin",
			PrimaryRef:       "main@origin",
			RemoteIsAncestor: map[string]bool{},
			Changes: []ChangeStatus{
				{
					Change:    jj.Change{ChangeID: "achange", CommitID: "c1"},
					Bookmarks: []jj.Bookmark{{Name: "a", ChangeID: "achange", CommitID: "c1", Tracking: jj.TrackingSynced}},
				},
				{
					Change:    jj.Change{ChangeID: "bchange", CommitID: "c2"},
					Bookmarks: []jj.Bookmark{{Name: "b", ChangeID: "bchange", CommitID: "c2", Tracking: jj.TrackingSynced}},
				},
				{
					Change:    jj.Change{ChangeID: "cchange", CommitID: "c3"},
					Bookmarks: []jj.Bookmark{{Name: "c", ChangeID: "cchange", CommitID: "c3", Tracking: jj.TrackingSynced}},
				},
			},
		}
		reviews := map[string]*github.ReviewRequest{
			"a": {Number: 1, State: github.StateMerged, Base: "main", Head: "a"},
			"b": {Number: 2, State: github.StateOpen, Base: "a", Head: "b"},
			"c": {Number: 3, State: github.StateOpen, Base: "b", Head: "c"},
		}

		plan := PlanLand(stack, reviews, "main", "main@origin", "")
		require.Equal(t, []string{"a"}, plan.LandedBookmarks)
		require.Equal(t, []string{"bchange", "cchange"}, plan.RemainingChanges)

		gw := newStubGateway()
		client := github.NewFakeClient()
		client.AddRequest(&github.ReviewRequest{Number: 2, State: github.StateOpen, Base: "a", Head: "b"})
		client.AddRequest(&github.ReviewRequest{Number: 3, State: github.StateOpen, Base: "b", Head: "c"})

		result := ExecuteLand(context.Background(), gw, client, plan, "origin")
		require.NoError(t, result.Err())

		require.Equal(t, []string{"a"}, gw.deleted)
		require.Equal(t, []string{"bchange -> main@origin"}, gw.rebased)

		// b's request now targets the primary branch; c's base stays b.
		require.Equal(t, map[int]string{2: "main"}, client.Retargeted)
		reqC, err := client.GetReviewRequest(context.Background(), "c")
		require.NoError(t, err)
		require.Equal(t, "b", reqC.Base)

		require.Equal(t, "1 bookmark deleted, 2 changes rebased, 1 request retargeted", result.Summary())
	})

	t.Run("rebase conflicts surface with their change ids", func(t *testing.T) {
		t.Parallel()

		reviews := map[string]*github.ReviewRequest{
			"feature-base": {Number: 1, State: github.StateMerged, Head: "feature-base"},
		}
		plan := PlanLand(landTestStack(), reviews, "main", "main@origin", "")

		gw := newStubGateway()
		gw.conflicted = []string{"midchange"}

		result := ExecuteLand(context.Background(), gw, github.NewFakeClient(), plan, "origin")
		require.ErrorIs(t, result.Err(), jferrors.ErrPartialFailure)

		var rebaseErr *jferrors.RebaseConflictError
		for _, res := range result.Results {
			if res.Action.Kind == ActionRebaseSubtree {
				require.True(t, errors.As(res.Err, &rebaseErr))
			}
		}
		require.NotNil(t, rebaseErr)
		require.Equal(t, []string{"midchange"}, rebaseErr.ChangeIDs)
	})

	t.Run("retargeting without a client records the failure", func(t *testing.T) {
		t.Parallel()

		reviews := map[string]*github.ReviewRequest{
			"feature-base": {Number: 1, State: github.StateMerged, Base: "main", Head: "feature-base"},
			"feature-mid":  {Number: 2, State: github.StateOpen, Base: "feature-base", Head: "feature-mid"},
		}
		plan := PlanLand(landTestStack(), reviews, "main", "main@origin", "")

		gw := newStubGateway()
		result := ExecuteLand(context.Background(), gw, nil, plan, "origin")
		require.ErrorIs(t, result.Err(), jferrors.ErrPartialFailure)

		last := result.Results[len(result.Results)-1]
		require.Equal(t, ActionRetargetRequest, last.Action.Kind)
		require.ErrorIs(t, last.Err, jferrors.ErrReviewHostUnavailable)
	})
}

func TestCollectReviews(t *testing.T) {
	t.Parallel()

	t.Run("nil client yields no reviews", func(t *testing.T) {
		t.Parallel()
		reviews := CollectReviews(context.Background(), nil, landTestStack())
		require.Empty(t, reviews)
	})

	t.Run("failing host yields no reviews", func(t *testing.T) {
		t.Parallel()

		client := github.NewFakeClient()
		client.FailWith(errors.New("host down"))

		reviews := CollectReviews(context.Background(), client, landTestStack())
		require.Empty(t, reviews)
	})

	t.Run("collects requests per bookmark", func(t *testing.T) {
		t.Parallel()

		client := github.NewFakeClient()
		client.AddRequest(&github.ReviewRequest{Number: 1, State: github.StateMerged, Head: "feature-base"})

		reviews := CollectReviews(context.Background(), client, landTestStack())
		require.Len(t, reviews, 1)
		require.Equal(t, github.StateMerged, reviews["feature-base"].State)
	})
}

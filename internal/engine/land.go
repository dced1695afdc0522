package engine

import (
	"context"
	"fmt"
	"strings"

	jferrors "jflow.dev/jflow/internal/errors"
	"jflow.dev/jflow/internal/github"
	"jflow.dev/jflow/internal/jj"
)

// LandActionKind tags one step of a land plan
type LandActionKind string

const (
	// ActionDeleteBookmark retires a bookmark locally and on the remote
	ActionDeleteBookmark LandActionKind = "delete-bookmark"
	// ActionRebaseSubtree moves the remaining changes onto a new base
	ActionRebaseSubtree LandActionKind = "rebase-subtree"
	// ActionRetargetRequest points a review request at a new base branch
	ActionRetargetRequest LandActionKind = "retarget-request"
)

// LandAction is one step of a land plan
type LandAction struct {
	Kind LandActionKind

	// Bookmark for ActionDeleteBookmark
	Bookmark string
	// FromChange and Onto for ActionRebaseSubtree
	FromChange string
	Onto       string
	// Request and NewBase for ActionRetargetRequest
	Request int
	NewBase string
}

func (a LandAction) String() string {
	switch a.Kind {
	case ActionDeleteBookmark:
		return fmt.Sprintf("delete bookmark %s", a.Bookmark)
	case ActionRebaseSubtree:
		return fmt.Sprintf("rebase %s onto %s", a.FromChange, a.Onto)
	case ActionRetargetRequest:
		return fmt.Sprintf("retarget request #%d to %s", a.Request, a.NewBase)
	default:
		return string(a.Kind)
	}
}

// LandPlan is the fully-computed sequence of actions for one land run. It is
// derived entirely from the snapshot and the review states gathered before
// any mutation, and never updated during execution.
type LandPlan struct {
	Actions []LandAction
	// LandedBookmarks in bottom-up order
	LandedBookmarks []string
	// RemainingChanges are the change IDs that stay in the stack, root-first
	RemainingChanges []string
}

// IsEmpty reports whether there is nothing to land
func (p *LandPlan) IsEmpty() bool {
	return len(p.LandedBookmarks) == 0
}

// CollectReviews fetches the review request for every bookmark in the stack.
// A nil client or a failing host yields nil entries: unknown state is never
// treated as merged.
func CollectReviews(ctx context.Context, client github.Client, stack *Stack) map[string]*github.ReviewRequest {
	reviews := map[string]*github.ReviewRequest{}
	if client == nil {
		return reviews
	}

	for _, cs := range stack.Changes {
		for _, b := range cs.Bookmarks {
			req, err := client.GetReviewRequest(ctx, b.Name)
			if err != nil {
				continue
			}
			if req != nil {
				reviews[b.Name] = req
			}
		}
	}
	return reviews
}

// PlanLand computes the land plan for the snapshot. Landing proceeds strictly
// bottom-up: a bookmark is landable only when its review request is merged
// and every bookmarked change below it lands in the same plan. When only is
// non-empty, just that bookmark is considered for landing.
func PlanLand(stack *Stack, reviews map[string]*github.ReviewRequest, primaryBranch, primaryRef, only string) *LandPlan {
	plan := &LandPlan{}

	// Walk root-first until the first bookmarked change that cannot land.
	boundary := -1
	for i, cs := range stack.Changes {
		if !cs.Bookmarked() {
			continue
		}

		landable := true
		for _, b := range cs.Bookmarks {
			req := reviews[b.Name]
			if req == nil || req.State != github.StateMerged {
				landable = false
				break
			}
			if only != "" && b.Name != only {
				landable = false
				break
			}
		}
		if !landable {
			break
		}

		for _, b := range cs.Bookmarks {
			plan.LandedBookmarks = append(plan.LandedBookmarks, b.Name)
			plan.Actions = append(plan.Actions, LandAction{
				Kind:     ActionDeleteBookmark,
				Bookmark: b.Name,
			})
		}
		boundary = i
	}

	if plan.IsEmpty() {
		return plan
	}

	landed := map[string]bool{}
	for _, name := range plan.LandedBookmarks {
		landed[name] = true
	}

	for _, cs := range stack.Changes[boundary+1:] {
		plan.RemainingChanges = append(plan.RemainingChanges, cs.Change.ChangeID)
	}

	if len(plan.RemainingChanges) > 0 {
		plan.Actions = append(plan.Actions, LandAction{
			Kind:       ActionRebaseSubtree,
			FromChange: plan.RemainingChanges[0],
			Onto:       primaryRef,
		})

		// Requests based on a landed bookmark now target a deleted branch;
		// point them at the primary branch instead.
		for _, cs := range stack.Changes[boundary+1:] {
			for _, b := range cs.Bookmarks {
				req := reviews[b.Name]
				if req == nil || req.State != github.StateOpen {
					continue
				}
				if landed[req.Base] {
					plan.Actions = append(plan.Actions, LandAction{
						Kind:    ActionRetargetRequest,
						Request: req.Number,
						NewBase: primaryBranch,
					})
				}
			}
		}
	}

	return plan
}

// LandActionResult records one executed action
type LandActionResult struct {
	Action LandAction
	Err    error
}

// LandResult collects per-action outcomes of one land run
type LandResult struct {
	Results []LandActionResult
	// RebasedChanges is the number of changes moved by the rebase step
	RebasedChanges int
}

// Err returns a PartialFailureError when any action failed, nil otherwise
func (r *LandResult) Err() error {
	failed := 0
	for _, res := range r.Results {
		if res.Err != nil {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return jferrors.NewPartialFailureError(failed, len(r.Results))
}

// Summary renders the one-line outcome, e.g.
// "1 bookmark deleted, 2 changes rebased, 1 request retargeted".
func (r *LandResult) Summary() string {
	deleted, retargeted := 0, 0
	for _, res := range r.Results {
		if res.Err != nil {
			continue
		}
		switch res.Action.Kind {
		case ActionDeleteBookmark:
			deleted++
		case ActionRetargetRequest:
			retargeted++
		}
	}

	parts := []string{
		pluralize(deleted, "bookmark") + " deleted",
		pluralize(r.RebasedChanges, "change") + " rebased",
		pluralize(retargeted, "request") + " retargeted",
	}
	return strings.Join(parts, ", ")
}

func pluralize(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// ExecuteLand runs the plan action-by-action, recording each outcome
// independently. Failures never roll back earlier actions; every prefix of
// applied actions leaves the repository in a valid state.
func ExecuteLand(ctx context.Context, gw jj.Gateway, client github.Client, plan *LandPlan, remote string) *LandResult {
	result := &LandResult{}

	for _, action := range plan.Actions {
		var err error

		switch action.Kind {
		case ActionDeleteBookmark:
			err = gw.DeleteBookmark(ctx, action.Bookmark)
			if err == nil {
				// Pushing a deleted bookmark propagates the deletion.
				err = gw.Push(ctx, action.Bookmark, remote, jj.PushOptions{})
			}

		case ActionRebaseSubtree:
			err = gw.RebaseSource(ctx, action.FromChange, action.Onto)
			if err == nil {
				var conflicted []string
				conflicted, err = gw.ConflictedChanges(ctx)
				if err == nil && len(conflicted) > 0 {
					err = jferrors.NewRebaseConflictError(conflicted, "")
				}
			}
			if err == nil {
				result.RebasedChanges = len(plan.RemainingChanges)
			}

		case ActionRetargetRequest:
			if client == nil {
				err = jferrors.ErrReviewHostUnavailable
			} else {
				err = client.RetargetReviewRequest(ctx, action.Request, action.NewBase)
			}
		}

		result.Results = append(result.Results, LandActionResult{Action: action, Err: err})
	}

	return result
}

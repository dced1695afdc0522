package engine

import (
	"context"
	"fmt"

	jferrors "jflow.dev/jflow/internal/errors"
	"jflow.dev/jflow/internal/jj"
)

// ReorderResult reports what a reorder run did
type ReorderResult struct {
	// Order is the change IDs in their new root-first order
	Order []string
	// Base is the revision the first change was rebased onto
	Base string
}

// ResolveReorder turns user-supplied change identifiers into the full
// root-first order to apply. A non-empty from is prepended, inclusive, so
// `reorder --from a b c` yields a, b, c. Every identifier must resolve to a
// distinct change in the current stack and at least two changes are required.
func ResolveReorder(stack *Stack, ids []string, from string) ([]string, error) {
	if from != "" {
		ids = append([]string{from}, ids...)
	}
	if len(ids) < 2 {
		return nil, fmt.Errorf("need at least two changes to reorder")
	}

	order := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		found := stack.FindChange(id)
		if found == nil {
			return nil, fmt.Errorf("change %s not found in the current stack", id)
		}
		full := found.Change.ChangeID
		if seen[full] {
			return nil, fmt.Errorf("change %s given more than once", found.Change.ShortID())
		}
		seen[full] = true
		order = append(order, full)
	}
	return order, nil
}

// InvertOrder returns the order that reverses the stack: the current tip
// first, the current bottom last. A non-empty from restricts the inversion to
// the changes from that change to the tip, inclusive.
func InvertOrder(stack *Stack, from string) ([]string, error) {
	start := 0
	if from != "" {
		found := stack.FindChange(from)
		if found == nil {
			return nil, fmt.Errorf("change %s not found in the current stack", from)
		}
		for i := range stack.Changes {
			if stack.Changes[i].Change.ChangeID == found.Change.ChangeID {
				start = i
				break
			}
		}
	}

	segment := stack.Changes[start:]
	order := make([]string, 0, len(segment))
	for i := len(segment) - 1; i >= 0; i-- {
		order = append(order, segment[i].Change.ChangeID)
	}
	return order, nil
}

// ReorderStack rebases each change in order onto its predecessor, starting
// from the original parent of the first change, then edits the new tip so the
// working copy follows the stack. Conflicts left by the rebases are reported
// with their change IDs; the repository stays in jj's paused-conflict state.
func ReorderStack(ctx context.Context, gw jj.Gateway, stack *Stack, order []string) (*ReorderResult, error) {
	if len(order) < 2 {
		return nil, fmt.Errorf("need at least two changes to reorder")
	}

	// The whole run is rebuilt on top of whatever sits below the lowest
	// ordered change, so the stack keeps its footing regardless of which
	// change ends up at the bottom.
	base := "root()"
	ordered := map[string]bool{}
	for _, id := range order {
		ordered[id] = true
	}
	for _, cs := range stack.Changes {
		if ordered[cs.Change.ChangeID] {
			if len(cs.Change.ParentIDs) > 0 {
				base = cs.Change.ParentIDs[0]
			}
			break
		}
	}

	current := base
	for _, id := range order {
		if err := gw.RebaseRevision(ctx, id, current); err != nil {
			return nil, err
		}
		current = id
	}

	if err := gw.Edit(ctx, order[len(order)-1]); err != nil {
		return nil, err
	}

	result := &ReorderResult{Order: order, Base: base}

	conflicted, err := gw.ConflictedChanges(ctx)
	if err != nil {
		return nil, err
	}
	if len(conflicted) > 0 {
		return result, jferrors.NewRebaseConflictError(conflicted, "")
	}
	return result, nil
}

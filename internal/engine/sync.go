package engine

import (
	"context"
	"sync"

	"jflow.dev/jflow/internal/config"
	jferrors "jflow.dev/jflow/internal/errors"
	"jflow.dev/jflow/internal/jj"
)

// DefaultPushParallelism bounds concurrent pushes in a single sync run
const DefaultPushParallelism = 4

// SyncOptions controls a sync run
type SyncOptions struct {
	// DryRun computes and reports deltas without calling any mutating operation
	DryRun bool
	// PushStyle is config.PushStyleSquash or config.PushStyleAppend
	PushStyle string
	// Parallelism bounds concurrent pushes; 0 means DefaultPushParallelism
	Parallelism int
}

// BookmarkSyncResult is the recorded outcome for one bookmark
type BookmarkSyncResult struct {
	Bookmark string
	// FromCommit and ToCommit describe the computed move; equal when the
	// bookmark already pointed at the change's current commit
	FromCommit string
	ToCommit   string
	Moved      bool
	Pushed     bool
	// UpToDate means no move and no push were needed
	UpToDate bool
	Err      error
}

// SyncResult collects per-bookmark outcomes of one sync run
type SyncResult struct {
	Results []BookmarkSyncResult
}

// Moves counts bookmarks that were (or would be) moved
func (r *SyncResult) Moves() int {
	n := 0
	for _, res := range r.Results {
		if res.Moved {
			n++
		}
	}
	return n
}

// Pushes counts bookmarks that were (or would be) pushed
func (r *SyncResult) Pushes() int {
	n := 0
	for _, res := range r.Results {
		if res.Pushed {
			n++
		}
	}
	return n
}

// Err returns a PartialFailureError when any bookmark failed, nil otherwise.
// Failures are collected, never short-circuited; succeeded bookmarks are not
// rolled back.
func (r *SyncResult) Err() error {
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

// bookmarkDelta is one planned correction, computed from the snapshot before
// any mutation.
type bookmarkDelta struct {
	bookmark jj.Bookmark
	change   jj.Change
	needMove bool
	needPush bool
	allowNew bool
	err      error
}

// SyncStack makes every bookmark in the stack point at its change's current
// commit, then pushes. Running it twice with no intervening change performs
// zero moves and zero pushes on the second run.
func SyncStack(ctx context.Context, gw jj.Gateway, stack *Stack, opts SyncOptions) *SyncResult {
	deltas := computeDeltas(stack, opts.PushStyle)

	result := &SyncResult{Results: make([]BookmarkSyncResult, len(deltas))}
	for i, d := range deltas {
		result.Results[i] = BookmarkSyncResult{
			Bookmark:   d.bookmark.Name,
			FromCommit: d.bookmark.CommitID,
			ToCommit:   d.change.CommitID,
			Moved:      d.needMove,
			Pushed:     d.needPush,
			UpToDate:   !d.needMove && !d.needPush && d.err == nil,
			Err:        d.err,
		}
	}

	if opts.DryRun {
		return result
	}

	// Bookmark moves are cheap local ref updates; do them sequentially so a
	// cancellation leaves a clean prefix of applied moves.
	for i, d := range deltas {
		if d.err != nil || !d.needMove {
			continue
		}
		if err := gw.MoveBookmark(ctx, d.bookmark.Name, d.change.ChangeID); err != nil {
			result.Results[i].Err = err
			result.Results[i].Moved = false
			result.Results[i].Pushed = false
			deltas[i].err = err
		}
	}

	// Pushes are mutually independent; fan out with bounded parallelism.
	// Each goroutine owns its own result slot.
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultPushParallelism
	}
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	for i, d := range deltas {
		if d.err != nil || !d.needPush {
			continue
		}

		wg.Add(1)
		go func(i int, d bookmarkDelta) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := gw.Push(ctx, d.bookmark.Name, stack.Remote, jj.PushOptions{AllowNew: d.allowNew})
			if err != nil {
				result.Results[i].Err = err
				result.Results[i].Pushed = false
			}
		}(i, d)
	}
	wg.Wait()

	return result
}

// computeDeltas derives the per-bookmark corrections from the snapshot. No
// external call is made here; the snapshot is the single source of truth for
// the whole run.
func computeDeltas(stack *Stack, pushStyle string) []bookmarkDelta {
	deltas := []bookmarkDelta{}

	for _, cs := range stack.Changes {
		for _, b := range cs.Bookmarks {
			d := bookmarkDelta{
				bookmark: b,
				change:   cs.Change,
				needMove: b.CommitID != cs.Change.CommitID,
				allowNew: b.Tracking == jj.TrackingAbsent,
			}
			d.needPush = d.needMove || b.Tracking != jj.TrackingSynced

			// Append style refuses pushes that would rewrite remote history.
			// The failed bookmark is isolated: others in the same run proceed.
			if d.needPush && pushStyle == config.PushStyleAppend && b.Tracking != jj.TrackingAbsent {
				if !stack.RemoteIsAncestor[b.Name] {
					d.err = jferrors.NewNonLinearHistoryError(b.Name)
					d.needMove = false
					d.needPush = false
				}
			}

			deltas = append(deltas, d)
		}
	}

	return deltas
}

package engine

import (
	"context"
	"fmt"
	"strings"

	"jflow.dev/jflow/internal/config"
	jferrors "jflow.dev/jflow/internal/errors"
	"jflow.dev/jflow/internal/jj"
)

// WipPrefix namespaces per-user work-in-progress bookmarks
const WipPrefix = "wip/"

// WipBookmarkName derives the per-user wip bookmark from the configured jj
// user name, e.g. "Ada Lovelace" -> "wip/ada-lovelace".
func WipBookmarkName(ctx context.Context, gw jj.Gateway) (string, error) {
	name, err := gw.UserName(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read user.name from jj config: %w", err)
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("user.name %q produces an empty bookmark name", name)
	}
	return WipPrefix + slug, nil
}

// slugify lowercases and maps every non-alphanumeric run to a single dash
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// wipRevset selects the changes carried by the wip ref that are not already
// on the primary branch.
func wipRevset(primaryRef, wipRef string) string {
	return fmt.Sprintf("%s::(%s) ~ ::(%s)", primaryRef, wipRef, primaryRef)
}

// WipStatus describes the remote wip bookmark for the current user
type WipStatus struct {
	// Bookmark is the full wip bookmark name
	Bookmark string
	// Exists is false when the bookmark is absent from the remote
	Exists bool
	// Changes are the carried changes, newest first, as jj reports them
	Changes []jj.Change
}

// QueryWipStatus reports whether the user's wip bookmark exists on the remote
// and which changes it carries.
func QueryWipStatus(ctx context.Context, gw jj.Gateway, cfg *config.Config) (*WipStatus, error) {
	bookmark, err := WipBookmarkName(ctx, gw)
	if err != nil {
		return nil, err
	}

	remoteRef := fmt.Sprintf("%s@%s", bookmark, cfg.Remote.Name)
	exists, err := gw.RevisionExists(ctx, remoteRef)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &WipStatus{Bookmark: bookmark}, nil
	}

	changes, err := gw.QueryChanges(ctx, wipRevset(cfg.RemoteRef(), remoteRef))
	if err != nil {
		return nil, wrapQueryError(err)
	}
	return &WipStatus{Bookmark: bookmark, Exists: true, Changes: changes}, nil
}

// WipPushResult reports what a wip push did
type WipPushResult struct {
	Bookmark string
	// Pushed is the number of stack changes now on the wip bookmark
	Pushed int
	// Blocked is true when the bookmark already exists on the remote and
	// force was not given; Existing lists what the remote holds
	Blocked  bool
	Existing []jj.Change
}

// WipPush pushes the working copy to the per-user wip bookmark. An existing
// remote wip bookmark blocks the push unless forced, so two machines never
// silently overwrite each other. The push itself never rewrites the stack.
func WipPush(ctx context.Context, gw jj.Gateway, cfg *config.Config, stack *Stack, force bool) (*WipPushResult, error) {
	bookmark, err := WipBookmarkName(ctx, gw)
	if err != nil {
		return nil, err
	}
	result := &WipPushResult{Bookmark: bookmark}

	if stack.IsEmpty() {
		return result, nil
	}

	// Fetch first so the existence check sees the remote's current state.
	if err := gw.Fetch(ctx, cfg.Remote.Name); err != nil {
		return nil, err
	}

	remoteRef := fmt.Sprintf("%s@%s", bookmark, cfg.Remote.Name)
	onRemote, err := gw.RevisionExists(ctx, remoteRef)
	if err != nil {
		return nil, err
	}

	if onRemote && !force {
		existing, err := gw.QueryChanges(ctx, wipRevset(cfg.RemoteRef(), remoteRef))
		if err != nil {
			return nil, wrapQueryError(err)
		}
		result.Blocked = true
		result.Existing = existing
		return result, nil
	}

	// A bare bookmark name only resolves when the local bookmark exists.
	local, err := gw.RevisionExists(ctx, bookmark)
	if err != nil {
		return nil, err
	}

	switch {
	case onRemote:
		if !local {
			if err := gw.TrackBookmark(ctx, bookmark, cfg.Remote.Name); err != nil {
				return nil, err
			}
		}
		if err := gw.MoveBookmark(ctx, bookmark, "@"); err != nil {
			return nil, err
		}
		if err := gw.Push(ctx, bookmark, cfg.Remote.Name, jj.PushOptions{}); err != nil {
			return nil, err
		}
	case local:
		// A stale local-only wip bookmark would make the named push
		// ambiguous; recreate it at the working copy instead.
		if err := gw.DeleteBookmark(ctx, bookmark); err != nil {
			return nil, err
		}
		if err := gw.PushNamed(ctx, bookmark, "@", cfg.Remote.Name); err != nil {
			return nil, err
		}
	default:
		if err := gw.PushNamed(ctx, bookmark, "@", cfg.Remote.Name); err != nil {
			return nil, err
		}
	}

	result.Pushed = len(stack.Changes)
	return result, nil
}

// WipPullResult reports what a wip pull did
type WipPullResult struct {
	Bookmark string
	// Blocked is true when local stack changes exist; pulling would tangle
	// them with the incoming wip changes
	Blocked bool
	// Found is false when the remote has no wip bookmark for this user
	Found bool
	// Pulled is the number of changes rebased onto the primary branch
	Pulled int
}

// WipPull fetches the user's wip bookmark and rebases its changes onto the
// primary branch, then edits the bookmark so the working copy lands on the
// pulled tip. It refuses to run over existing local stack changes.
func WipPull(ctx context.Context, gw jj.Gateway, cfg *config.Config, stack *Stack) (*WipPullResult, error) {
	bookmark, err := WipBookmarkName(ctx, gw)
	if err != nil {
		return nil, err
	}
	result := &WipPullResult{Bookmark: bookmark}

	if !stack.IsEmpty() {
		result.Blocked = true
		return result, nil
	}

	if err := gw.Fetch(ctx, cfg.Remote.Name); err != nil {
		return nil, err
	}

	remoteRef := fmt.Sprintf("%s@%s", bookmark, cfg.Remote.Name)
	exists, err := gw.RevisionExists(ctx, remoteRef)
	if err != nil {
		return nil, err
	}
	if !exists {
		return result, nil
	}
	result.Found = true

	primaryRef := cfg.RemoteRef()
	changes, err := gw.QueryChanges(ctx, wipRevset(primaryRef, remoteRef))
	if err != nil {
		return nil, wrapQueryError(err)
	}
	if len(changes) == 0 {
		return result, nil
	}

	if err := gw.RebaseSource(ctx, remoteRef, primaryRef); err != nil {
		return nil, err
	}
	if err := gw.Edit(ctx, bookmark); err != nil {
		return nil, err
	}
	result.Pulled = len(changes)

	conflicted, err := gw.ConflictedChanges(ctx)
	if err != nil {
		return nil, err
	}
	if len(conflicted) > 0 {
		return result, jferrors.NewRebaseConflictError(conflicted, "")
	}
	return result, nil
}

// WipCleanResult reports what a wip clean did
type WipCleanResult struct {
	Bookmark string
	// Found is false when the bookmark exists neither locally nor remotely
	Found bool
	// Blocked lists changes carrying no non-wip bookmark; cleaning would
	// orphan work that never made it into a review request
	Blocked []jj.Change
	// DeletedLocal and DeletedRemote record which sides were removed
	DeletedLocal  bool
	DeletedRemote bool
}

// WipClean deletes the user's wip bookmark locally and on the remote. Unless
// forced, every carried change must hold at least one non-wip bookmark,
// proving the work survives somewhere reviewable.
func WipClean(ctx context.Context, gw jj.Gateway, cfg *config.Config, force bool) (*WipCleanResult, error) {
	bookmark, err := WipBookmarkName(ctx, gw)
	if err != nil {
		return nil, err
	}
	result := &WipCleanResult{Bookmark: bookmark}

	remoteRef := fmt.Sprintf("%s@%s", bookmark, cfg.Remote.Name)
	local, err := gw.RevisionExists(ctx, bookmark)
	if err != nil {
		return nil, err
	}
	remote, err := gw.RevisionExists(ctx, remoteRef)
	if err != nil {
		return nil, err
	}
	if !local && !remote {
		return result, nil
	}
	result.Found = true

	wipRef := bookmark
	if remote {
		wipRef = remoteRef
	}
	changes, err := gw.QueryChanges(ctx, wipRevset(cfg.RemoteRef(), wipRef))
	if err != nil {
		return nil, wrapQueryError(err)
	}

	if !force {
		for _, change := range changes {
			if !hasNonWipBookmark(change) {
				result.Blocked = append(result.Blocked, change)
			}
		}
		if len(result.Blocked) > 0 {
			return result, nil
		}
	}

	if remote && !local {
		// Deleting remotely goes through a tracked local bookmark.
		if err := gw.TrackBookmark(ctx, bookmark, cfg.Remote.Name); err != nil {
			return nil, err
		}
		if err := gw.DeleteBookmark(ctx, bookmark); err != nil {
			return nil, err
		}
	} else if local {
		if err := gw.DeleteBookmark(ctx, bookmark); err != nil {
			return nil, err
		}
		result.DeletedLocal = true
	}
	if remote {
		if err := gw.Push(ctx, bookmark, cfg.Remote.Name, jj.PushOptions{}); err != nil {
			return nil, err
		}
		result.DeletedRemote = true
	}
	return result, nil
}

func hasNonWipBookmark(change jj.Change) bool {
	for _, name := range change.Bookmarks {
		if !strings.HasPrefix(name, WipPrefix) {
			return true
		}
	}
	return false
}

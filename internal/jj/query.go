package jj

import (
	"encoding/json"
	"fmt"
	"strings"

	jferrors "jflow.dev/jflow/internal/errors"
)

// changeTemplate makes `jj log` emit one JSON object per line. jj's template
// language has no JSON mode, so the template assembles the object by hand.
const changeTemplate = `concat(
  "{\"change_id\":\"", change_id, "\",",
  "\"commit_id\":\"", commit_id, "\",",
  "\"description\":", description.first_line().escape_json(), ",",
  "\"parents\":[", parents.map(|p| concat("\"", p.change_id(), "\"")).join(","), "],",
  "\"bookmarks\":[", bookmarks.map(|b| concat("\"", b.name(), "\"")).join(","), "]",
  "}\n"
)`

// bookmarkTemplate emits one JSON object per bookmark ref, local and remote.
// tracking_present() guards the tracking counters, which only exist on
// tracked remote refs.
const bookmarkTemplate = `concat(
  "{\"name\":\"", name, "\",",
  "\"remote\":", if(remote, concat("\"", remote, "\""), "null"), ",",
  "\"change_id\":", if(normal_target, concat("\"", normal_target.change_id(), "\""), "null"), ",",
  "\"commit_id\":", if(normal_target, concat("\"", normal_target.commit_id(), "\""), "null"), ",",
  "\"synced\":", self.synced(), ",",
  "\"ahead\":", if(self.tracking_present(), tracking_ahead_count.exact(), "null"), ",",
  "\"behind\":", if(self.tracking_present(), tracking_behind_count.exact(), "null"),
  "}\n"
)`

// parseChanges validates and decodes line-per-entry JSON from the change
// template. Any malformed non-empty line aborts the parse: jj's output shape
// is a contract to validate, never to trust.
func parseChanges(output string) ([]Change, error) {
	changes := []Change{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var change Change
		if err := json.Unmarshal([]byte(line), &change); err != nil {
			return nil, jferrors.NewQueryParseError("jj log", line, err)
		}
		if change.ChangeID == "" || change.CommitID == "" {
			return nil, jferrors.NewQueryParseError("jj log", line, fmt.Errorf("missing change or commit id"))
		}
		changes = append(changes, change)
	}
	return changes, nil
}

// parseBookmarkEntries validates and decodes line-per-entry JSON from the
// bookmark template.
func parseBookmarkEntries(output string) ([]bookmarkEntry, error) {
	entries := []bookmarkEntry{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var entry bookmarkEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, jferrors.NewQueryParseError("jj bookmark list", line, err)
		}
		if entry.Name == "" {
			return nil, jferrors.NewQueryParseError("jj bookmark list", line, fmt.Errorf("missing bookmark name"))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// resolveTracking derives the tracking state of a local bookmark from its
// remote tracking entry. jj reports the remote ref's position relative to the
// local one, so the counters are inverted: remote behind = local ahead.
func resolveTracking(remote *bookmarkEntry) (TrackingState, int, int) {
	if remote == nil {
		return TrackingAbsent, 0, 0
	}

	ahead := 0
	behind := 0
	if remote.Behind != nil {
		ahead = *remote.Behind
	}
	if remote.Ahead != nil {
		behind = *remote.Ahead
	}

	switch {
	case remote.Synced:
		return TrackingSynced, 0, 0
	case ahead > 0 && behind > 0:
		return TrackingDiverged, ahead, behind
	case ahead > 0:
		return TrackingAhead, ahead, 0
	case behind > 0:
		return TrackingBehind, 0, behind
	default:
		// Counters at zero with the synced flag unset still means synced.
		return TrackingSynced, 0, 0
	}
}

// assembleBookmarks pairs local bookmark entries with the tracking entry for
// the given remote. Deleted bookmarks (null target) are skipped.
func assembleBookmarks(entries []bookmarkEntry, remoteName string) []Bookmark {
	bookmarks := []Bookmark{}

	for _, local := range entries {
		if local.Remote != nil || local.ChangeID == nil {
			continue
		}

		var remoteEntry *bookmarkEntry
		for i := range entries {
			e := &entries[i]
			if e.Name == local.Name && e.Remote != nil && *e.Remote == remoteName {
				remoteEntry = e
				break
			}
		}

		tracking, ahead, behind := resolveTracking(remoteEntry)

		b := Bookmark{
			Name:     local.Name,
			ChangeID: *local.ChangeID,
			Tracking: tracking,
			Ahead:    ahead,
			Behind:   behind,
		}
		if local.CommitID != nil {
			b.CommitID = *local.CommitID
		}
		if remoteEntry != nil && remoteEntry.CommitID != nil {
			b.RemoteCommitID = *remoteEntry.CommitID
		}
		bookmarks = append(bookmarks, b)
	}

	return bookmarks
}

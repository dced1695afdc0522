package jj

// Change is a logical unit of work in the jj repository. The ChangeID is
// stable across amendments and rebases; the CommitID changes on every
// amendment. Changes are owned by jj, jflow only reads them.
type Change struct {
	ChangeID    string   `json:"change_id"`
	CommitID    string   `json:"commit_id"`
	Description string   `json:"description"`
	ParentIDs   []string `json:"parents"`
	Bookmarks   []string `json:"bookmarks"`
}

// ShortID returns the first 8 characters of the change ID
func (c Change) ShortID() string {
	if len(c.ChangeID) > 8 {
		return c.ChangeID[:8]
	}
	return c.ChangeID
}

// TrackingState describes the relationship between a local bookmark's target
// commit and its remote-tracked counterpart.
type TrackingState string

const (
	// TrackingAbsent means the bookmark does not exist on the remote
	TrackingAbsent TrackingState = "absent"
	// TrackingSynced means local and remote point at the same commit
	TrackingSynced TrackingState = "synced"
	// TrackingAhead means the local commit descends from the remote commit
	TrackingAhead TrackingState = "ahead"
	// TrackingBehind means the remote commit descends from the local commit
	TrackingBehind TrackingState = "behind"
	// TrackingDiverged means neither commit descends from the other
	TrackingDiverged TrackingState = "diverged"
)

// Bookmark is a named mutable pointer to exactly one change
type Bookmark struct {
	Name           string
	ChangeID       string
	CommitID       string
	Tracking       TrackingState
	Ahead          int
	Behind         int
	RemoteCommitID string
}

// bookmarkEntry is one raw line of `jj bookmark list --all` template output.
// Local bookmarks have Remote == nil; deleted bookmarks have ChangeID == nil.
type bookmarkEntry struct {
	Name     string  `json:"name"`
	Remote   *string `json:"remote"`
	ChangeID *string `json:"change_id"`
	CommitID *string `json:"commit_id"`
	Synced   bool    `json:"synced"`
	Ahead    *int    `json:"ahead"`
	Behind   *int    `json:"behind"`
}

// PushOptions controls how a bookmark is pushed
type PushOptions struct {
	// AllowNew permits creating the bookmark on the remote
	AllowNew bool
}

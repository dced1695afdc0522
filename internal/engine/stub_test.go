package engine

import (
	"context"
	"fmt"
	"sync"

	"jflow.dev/jflow/internal/jj"
)

// stubGateway is an in-memory Gateway for engine tests. Reads come from
// preset fields; mutations are recorded.
type stubGateway struct {
	mu sync.Mutex

	root            string
	changes         []jj.Change
	changesByRevset map[string][]jj.Change
	bookmarks       []jj.Bookmark
	workingID       string
	userName        string
	revisions       map[string]bool
	ancestors       map[string]bool
	conflicted      []string

	fetchErr error
	pushErr  map[string]error
	moveErr  map[string]error

	moved     []string
	pushed    []string
	pushedNew []string
	deleted   []string
	fetched   []string
	rebased   []string
	created   []string
	tracked   []string
	edited    []string
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		root:            "/repo",
		userName:        "Test User",
		changesByRevset: map[string][]jj.Change{},
		revisions:       map[string]bool{"main@origin": true},
		ancestors:       map[string]bool{},
		pushErr:         map[string]error{},
		moveErr:         map[string]error{},
	}
}

func (g *stubGateway) Root(context.Context) (string, error) {
	return g.root, nil
}

func (g *stubGateway) QueryChanges(_ context.Context, revset string) ([]jj.Change, error) {
	if changes, ok := g.changesByRevset[revset]; ok {
		return changes, nil
	}
	return g.changes, nil
}

func (g *stubGateway) ListBookmarks(context.Context, string) ([]jj.Bookmark, error) {
	return g.bookmarks, nil
}

func (g *stubGateway) WorkingCopyID(context.Context) (string, error) {
	return g.workingID, nil
}

func (g *stubGateway) IsAncestor(_ context.Context, ancestor, descendant string) (bool, error) {
	return g.ancestors[ancestor+"::"+descendant], nil
}

func (g *stubGateway) RevisionExists(_ context.Context, revision string) (bool, error) {
	return g.revisions[revision], nil
}

func (g *stubGateway) UserName(context.Context) (string, error) {
	return g.userName, nil
}

func (g *stubGateway) CreateBookmark(_ context.Context, name, revision string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, name+"@"+revision)
	return nil
}

func (g *stubGateway) MoveBookmark(_ context.Context, name, revision string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.moveErr[name]; err != nil {
		return err
	}
	g.moved = append(g.moved, name+"@"+revision)
	return nil
}

func (g *stubGateway) DeleteBookmark(_ context.Context, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, name)
	return nil
}

func (g *stubGateway) TrackBookmark(_ context.Context, name, remote string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tracked = append(g.tracked, name+"@"+remote)
	return nil
}

func (g *stubGateway) Push(_ context.Context, name, remote string, opts jj.PushOptions) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.pushErr[name]; err != nil {
		return err
	}
	record := name
	if opts.AllowNew {
		record += " (new)"
	}
	g.pushed = append(g.pushed, record)
	return nil
}

func (g *stubGateway) PushNamed(_ context.Context, name, revision, remote string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pushedNew = append(g.pushedNew, name+"="+revision)
	return nil
}

func (g *stubGateway) Fetch(_ context.Context, remote string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return g.fetchErr
	}
	g.fetched = append(g.fetched, remote)
	return nil
}

func (g *stubGateway) Rebase(_ context.Context, destination string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rebased = append(g.rebased, "-> "+destination)
	return nil
}

func (g *stubGateway) RebaseSource(_ context.Context, source, destination string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rebased = append(g.rebased, fmt.Sprintf("%s -> %s", source, destination))
	return nil
}

func (g *stubGateway) RebaseRevision(_ context.Context, revision, destination string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rebased = append(g.rebased, fmt.Sprintf("%s => %s", revision, destination))
	return nil
}

func (g *stubGateway) Edit(_ context.Context, revision string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edited = append(g.edited, revision)
	return nil
}

func (g *stubGateway) ConflictedChanges(context.Context) ([]string, error) {
	return g.conflicted, nil
}

var _ jj.Gateway = (*stubGateway)(nil)

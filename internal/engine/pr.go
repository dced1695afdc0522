package engine

import (
	"context"
	"fmt"
	"strings"

	"jflow.dev/jflow/internal/config"
	"jflow.dev/jflow/internal/github"
	"jflow.dev/jflow/internal/jj"
)

// CreatePRResult reports what CreatePR did
type CreatePRResult struct {
	// Bookmark is the full bookmark name, prefix included
	Bookmark string
	// Request is nil when the review host is unavailable; the caller prints
	// manual instructions instead
	Request *github.ReviewRequest
	// Existing is true when a request for the bookmark already existed
	Existing bool
	// Base is the branch the request targets
	Base string
}

// CreatePR creates a bookmark at the given change, pushes it, and opens a
// review request against the nearest ancestor bookmark in the stack (or the
// primary branch). Review-host unavailability degrades to a nil Request; the
// bookmark and push still happen.
func CreatePR(ctx context.Context, gw jj.Gateway, client github.Client, stack *Stack, cfg *config.Config, changeID, name string) (*CreatePRResult, error) {
	found := stack.FindChange(changeID)
	if found == nil {
		return nil, fmt.Errorf("change %s not found in the current stack", changeID)
	}
	index := -1
	for i := range stack.Changes {
		if stack.Changes[i].Change.ChangeID == found.Change.ChangeID {
			index = i
			break
		}
	}
	cs := stack.Changes[index]

	if strings.TrimSpace(cs.Change.Description) == "" {
		return nil, fmt.Errorf("change %s has no description; add one with: jj describe -r %s", cs.Change.ShortID(), cs.Change.ShortID())
	}

	bookmark := cfg.BookmarkName(name)

	if err := gw.CreateBookmark(ctx, bookmark, cs.Change.ChangeID); err != nil {
		return nil, err
	}
	if err := gw.Push(ctx, bookmark, cfg.Remote.Name, jj.PushOptions{AllowNew: true}); err != nil {
		return nil, err
	}

	base := stack.BaseBookmarkFor(index)
	if base == "" {
		base = cfg.Remote.Primary
	}

	result := &CreatePRResult{Bookmark: bookmark, Base: base}
	if client == nil {
		return result, nil
	}

	existing, err := client.GetReviewRequest(ctx, bookmark)
	if err != nil {
		// Host reachable for pushes but not for queries: degrade the same way.
		return result, nil
	}
	if existing != nil {
		result.Request = existing
		result.Existing = true
		return result, nil
	}

	title := firstLine(cs.Change.Description)
	body := cs.Change.Description
	if cfg.GitHub.StackContext {
		body = body + "\n\n" + stackContextFooter(stack, cs.Change.ChangeID)
	}

	req, err := client.CreateReviewRequest(ctx, github.CreateOptions{
		Title: title,
		Body:  body,
		Head:  bookmark,
		Base:  base,
	})
	if err != nil {
		return result, nil
	}

	result.Request = req
	return result, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// stackContextFooter renders the "part of a stack" section appended to PR
// bodies when github.stack_context is enabled.
func stackContextFooter(stack *Stack, currentID string) string {
	var b strings.Builder
	b.WriteString("---\n\n**Part of stack:**\n\n")

	for i := len(stack.Changes) - 1; i >= 0; i-- {
		cs := stack.Changes[i]
		desc := firstLine(cs.Change.Description)
		if desc == "" {
			desc = "(no description)"
		}

		switch {
		case cs.Change.ChangeID == currentID:
			fmt.Fprintf(&b, "- **This PR** (%s)\n", desc)
		case cs.Bookmarked():
			fmt.Fprintf(&b, "- %s (bookmark: `%s`)\n", desc, cs.Bookmarks[0].Name)
		}
	}

	return b.String()
}

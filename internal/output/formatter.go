// Package output renders stack snapshots for the terminal.
package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"jflow.dev/jflow/internal/engine"
	"jflow.dev/jflow/internal/github"
	"jflow.dev/jflow/internal/jj"
)

var (
	styleChangeID = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	styleDim      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleBookmark = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleSynced   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleAhead    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleBehind   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleDiverged = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleOpen     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleMerged   = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
)

// Formatter renders stack snapshots. Color is decided once at construction
// and applied consistently to every line.
type Formatter struct {
	color bool
}

// NewFormatter creates a formatter with color auto-detection on stdout
func NewFormatter() *Formatter {
	return &Formatter{color: colorEnabled(os.Stdout)}
}

// NewPlainFormatter creates a formatter that never emits color codes
func NewPlainFormatter() *Formatter {
	return &Formatter{color: false}
}

// colorEnabled reports whether stdout is a color-capable terminal
func colorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

func (f *Formatter) styled(s lipgloss.Style, text string) string {
	if !f.color {
		return text
	}
	return s.Render(text)
}

// RenderStack renders the stack top-down, working copy first, with one line
// per change and one indented line per bookmark. The primary ref anchors the
// bottom. Reviews may be nil when the review host was unavailable.
func (f *Formatter) RenderStack(stack *engine.Stack, reviews map[string]*github.ReviewRequest) string {
	var b strings.Builder

	if stack.IsEmpty() {
		b.WriteString("no changes on top of " + stack.PrimaryRef + "\n")
		return b.String()
	}

	for i := len(stack.Changes) - 1; i >= 0; i-- {
		cs := stack.Changes[i]

		glyph := "◉"
		if cs.IsWorking {
			glyph = "@"
		}

		desc := firstLine(cs.Change.Description)
		if desc == "" {
			desc = f.styled(styleDim, "(no description)")
		}

		fmt.Fprintf(&b, "%s  %s %s\n", glyph, f.styled(styleChangeID, cs.Change.ShortID()), desc)

		for _, bm := range cs.Bookmarks {
			fmt.Fprintf(&b, "│    %s %s%s\n",
				f.styled(styleBookmark, bm.Name),
				f.renderTracking(bm),
				f.renderReview(reviews[bm.Name]))
		}
	}

	fmt.Fprintf(&b, "~  %s\n", f.styled(styleDim, stack.PrimaryRef))
	return b.String()
}

// renderTracking formats the bookmark's remote tracking state
func (f *Formatter) renderTracking(bm jj.Bookmark) string {
	switch bm.Tracking {
	case jj.TrackingSynced:
		return f.styled(styleSynced, "[synced]")
	case jj.TrackingAhead:
		return f.styled(styleAhead, fmt.Sprintf("[ahead %d]", bm.Ahead))
	case jj.TrackingBehind:
		return f.styled(styleBehind, fmt.Sprintf("[behind %d]", bm.Behind))
	case jj.TrackingDiverged:
		return f.styled(styleDiverged, "[diverged]")
	default:
		return f.styled(styleDim, "[not pushed]")
	}
}

// renderReview formats the review request annotation, empty when none exists
func (f *Formatter) renderReview(req *github.ReviewRequest) string {
	if req == nil {
		return ""
	}

	label := fmt.Sprintf(" #%d %s", req.Number, req.State)
	switch req.State {
	case github.StateOpen:
		return f.styled(styleOpen, label)
	case github.StateMerged:
		return f.styled(styleMerged, label)
	default:
		return f.styled(styleDim, label)
	}
}

// RenderSyncResult renders the per-bookmark outcome of a sync run
func (f *Formatter) RenderSyncResult(result *engine.SyncResult, dryRun bool) string {
	var b strings.Builder

	for _, res := range result.Results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(&b, "✗ %s: %v\n", f.styled(styleBookmark, res.Bookmark), res.Err)
		case res.UpToDate:
			fmt.Fprintf(&b, "= %s %s\n", f.styled(styleBookmark, res.Bookmark), f.styled(styleDim, "up to date"))
		default:
			verb := "synced"
			if dryRun {
				verb = "would sync"
			}
			detail := ""
			if res.Moved {
				detail = fmt.Sprintf(" %s → %s", shortCommit(res.FromCommit), shortCommit(res.ToCommit))
			}
			fmt.Fprintf(&b, "✓ %s %s%s\n", f.styled(styleBookmark, res.Bookmark), verb, f.styled(styleDim, detail))
		}
	}

	return b.String()
}

// RenderChangeList renders a flat change listing in jj's own order, one line
// per change. Used for wip bookmark contents.
func (f *Formatter) RenderChangeList(changes []jj.Change) string {
	var b strings.Builder
	for _, c := range changes {
		desc := firstLine(c.Description)
		if desc == "" {
			desc = f.styled(styleDim, "(no description)")
		}
		fmt.Fprintf(&b, "○ %s  %s\n", f.styled(styleChangeID, c.ShortID()), desc)
	}
	return b.String()
}

// RenderLandPlan renders a land plan for dry-run display
func (f *Formatter) RenderLandPlan(plan *engine.LandPlan) string {
	var b strings.Builder
	for _, action := range plan.Actions {
		fmt.Fprintf(&b, "• %s\n", action.String())
	}
	return b.String()
}

func shortCommit(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

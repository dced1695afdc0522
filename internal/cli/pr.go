package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"jflow.dev/jflow/internal/engine"
	"jflow.dev/jflow/internal/runtime"
)

// newPRCmd creates the pr command
func newPRCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pr <change> [name]",
		Short: "Create a bookmark and review request for a change",
		Long: `Create a bookmark at the given change, push it, and open a review request
against the nearest bookmarked ancestor in the stack (or the primary branch
when there is none). The change is addressed by change ID or unique prefix.

When name is omitted you are prompted for one. The configured bookmark
prefix is applied to the name.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rtx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			defer func() { _ = rtx.Close() }()

			stack, err := engine.BuildStack(cmd.Context(), rtx.Gateway, rtx.Config)
			if err != nil {
				return err
			}

			name := ""
			if len(args) == 2 {
				name = args[1]
			} else {
				prompt := &survey.Input{
					Message: "Choose a bookmark name",
					Default: suggestBookmarkName(stack, args[0]),
				}
				if err := survey.AskOne(prompt, &name); err != nil {
					return fmt.Errorf("canceled")
				}
			}
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("bookmark name cannot be empty")
			}

			result, err := engine.CreatePR(cmd.Context(), rtx.Gateway, rtx.GitHub, stack, rtx.Config, args[0], name)
			if err != nil {
				return err
			}

			rtx.Splog.Info("pushed bookmark %s", result.Bookmark)

			switch {
			case result.Existing:
				rtx.Splog.Info("review request already exists: %s", result.Request.URL)
			case result.Request != nil:
				rtx.Splog.Info("created review request #%d: %s", result.Request.Number, result.Request.URL)
			default:
				rtx.Splog.Warn("review host unavailable")
				rtx.Splog.Info("open a pull request manually: base %s, head %s", result.Base, result.Bookmark)
			}

			return nil
		},
	}
}

// suggestBookmarkName derives a default bookmark name from the change's
// description first line
func suggestBookmarkName(stack *engine.Stack, changeID string) string {
	cs := stack.FindChange(changeID)
	if cs == nil {
		return ""
	}

	line := cs.Change.Description
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(line) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	name := strings.TrimSuffix(b.String(), "-")
	if len(name) > 40 {
		name = strings.TrimSuffix(name[:40], "-")
	}
	return name
}

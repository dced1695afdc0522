package cli

import (
	"github.com/spf13/cobra"

	"jflow.dev/jflow/internal/engine"
	"jflow.dev/jflow/internal/output"
	"jflow.dev/jflow/internal/runtime"
)

// newWipCmd creates the wip command and its subcommands
func newWipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wip",
		Short: "Park the stack on a per-user wip bookmark",
		Long: `Move work between machines through a wip/<user> bookmark on the remote.
The bookmark name derives from user.name in jj's config, so each user gets
their own. Bare invocation shows what the remote currently holds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWipStatus(cmd)
		},
	}

	cmd.AddCommand(newWipPushCmd())
	cmd.AddCommand(newWipPullCmd())
	cmd.AddCommand(newWipCleanCmd())

	return cmd
}

func runWipStatus(cmd *cobra.Command) error {
	rtx, err := runtime.GetContext()
	if err != nil {
		return err
	}
	defer func() { _ = rtx.Close() }()

	status, err := engine.QueryWipStatus(cmd.Context(), rtx.Gateway, rtx.Config)
	if err != nil {
		return err
	}

	if !status.Exists {
		rtx.Splog.Info("no wip bookmark on %s (%s); push one with: jf wip push", rtx.Config.Remote.Name, status.Bookmark)
		return nil
	}

	rtx.Splog.Info("%s on %s:", status.Bookmark, rtx.Config.Remote.Name)
	if len(status.Changes) == 0 {
		rtx.Splog.Info("  (no changes)")
		return nil
	}

	formatter := output.NewFormatter()
	rtx.Splog.Page(formatter.RenderChangeList(status.Changes))
	return nil
}

// newWipPushCmd creates the wip push command
func newWipPushCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push the stack to the wip bookmark",
		Long: `Point the per-user wip bookmark at the working copy and push it. An
existing wip bookmark on the remote blocks the push unless --force is
given, so work parked from another machine is never silently replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rtx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			defer func() { _ = rtx.Close() }()

			stack, err := engine.BuildStack(cmd.Context(), rtx.Gateway, rtx.Config)
			if err != nil {
				return err
			}

			result, err := engine.WipPush(cmd.Context(), rtx.Gateway, rtx.Config, stack, force)
			if err != nil {
				return err
			}

			if result.Blocked {
				rtx.Splog.Error("%s already exists on %s:", result.Bookmark, rtx.Config.Remote.Name)
				formatter := output.NewFormatter()
				rtx.Splog.Page(formatter.RenderChangeList(result.Existing))
				rtx.Splog.Info("use --force to overwrite, or pull it first with: jf wip pull")
				return nil
			}
			if result.Pushed == 0 {
				rtx.Splog.Info("no changes in the stack to push")
				return nil
			}

			rtx.Splog.Info("pushed %d changes to %s", result.Pushed, result.Bookmark)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing wip bookmark on the remote")

	return cmd
}

// newWipPullCmd creates the wip pull command
func newWipPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pull the wip bookmark and rebase it onto the primary branch",
		Long: `Fetch the per-user wip bookmark, rebase its changes onto the primary
branch, and move the working copy to the pulled tip. Existing local stack
changes block the pull; park or land them first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rtx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			defer func() { _ = rtx.Close() }()

			stack, err := engine.BuildStack(cmd.Context(), rtx.Gateway, rtx.Config)
			if err != nil {
				return err
			}

			result, err := engine.WipPull(cmd.Context(), rtx.Gateway, rtx.Config, stack)
			if err != nil {
				return err
			}

			if result.Blocked {
				rtx.Splog.Error("local changes exist:")
				formatter := output.NewFormatter()
				rtx.Splog.Page(formatter.RenderStack(stack, nil))
				rtx.Splog.Info("clean up the local stack first, then try again")
				return nil
			}
			if !result.Found {
				rtx.Splog.Info("no wip bookmark on %s (%s)", rtx.Config.Remote.Name, result.Bookmark)
				return nil
			}
			if result.Pulled == 0 {
				rtx.Splog.Info("no changes on %s", result.Bookmark)
				return nil
			}

			rtx.Splog.Info("pulled %d changes from %s", result.Pulled, result.Bookmark)
			return nil
		},
	}
}

// newWipCleanCmd creates the wip clean command
func newWipCleanCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete the wip bookmark locally and on the remote",
		Long: `Delete the per-user wip bookmark. Unless --force is given, every change
the bookmark carries must hold at least one non-wip bookmark, so nothing
disappears that never reached review.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rtx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			defer func() { _ = rtx.Close() }()

			result, err := engine.WipClean(cmd.Context(), rtx.Gateway, rtx.Config, force)
			if err != nil {
				return err
			}

			if !result.Found {
				rtx.Splog.Info("no wip bookmark to clean (%s)", result.Bookmark)
				return nil
			}
			if len(result.Blocked) > 0 {
				rtx.Splog.Error("cannot clean: changes without a review bookmark:")
				formatter := output.NewFormatter()
				rtx.Splog.Page(formatter.RenderChangeList(result.Blocked))
				rtx.Splog.Info("open requests with: jf pr, or use --force to delete anyway")
				return nil
			}

			rtx.Splog.Info("deleted %s", result.Bookmark)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete even when changes have no review bookmark")

	return cmd
}

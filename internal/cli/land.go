package cli

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"jflow.dev/jflow/internal/engine"
	"jflow.dev/jflow/internal/output"
	"jflow.dev/jflow/internal/runtime"
)

// newLandCmd creates the land command
func newLandCmd() *cobra.Command {
	var (
		dryRun bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "land [bookmark]",
		Short: "Retire merged changes from the bottom of the stack",
		Long: `Delete the bookmarks whose review requests have been merged, rebase the
remaining changes onto the primary branch, and retarget their review
requests. Landing is strictly bottom-up: a change lands only when
everything below it lands too.

With a bookmark argument, only that bookmark is considered for landing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rtx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			defer func() { _ = rtx.Close() }()

			only := ""
			if len(args) == 1 {
				only = args[0]
			}

			// Fetch first so merge states and the primary position are current.
			if err := rtx.Gateway.Fetch(cmd.Context(), rtx.Config.Remote.Name); err != nil {
				return err
			}

			stack, err := engine.BuildStack(cmd.Context(), rtx.Gateway, rtx.Config)
			if err != nil {
				return err
			}
			if stack.IsEmpty() {
				rtx.Splog.Info("nothing to land: no changes on top of %s", stack.PrimaryRef)
				return nil
			}

			primaryRef, err := engine.RequirePrimaryRef(cmd.Context(), rtx.Gateway, rtx.Config)
			if err != nil {
				return err
			}

			reviews := engine.CollectReviews(cmd.Context(), rtx.GitHub, stack)
			plan := engine.PlanLand(stack, reviews, rtx.Config.Remote.Primary, primaryRef, only)

			if plan.IsEmpty() {
				if rtx.GitHub == nil {
					rtx.Splog.Warn("review host unavailable: merge states unknown, nothing landed")
					return nil
				}
				rtx.Splog.Info("nothing to land: no merged review request at the bottom of the stack")
				return nil
			}

			formatter := output.NewFormatter()
			rtx.Splog.Page(formatter.RenderLandPlan(plan))

			if dryRun {
				return nil
			}

			if !force {
				confirmed := false
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("Land %d bookmark(s)?", len(plan.LandedBookmarks)),
					Default: true,
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil || !confirmed {
					return fmt.Errorf("canceled")
				}
			}

			result := engine.ExecuteLand(cmd.Context(), rtx.Gateway, rtx.GitHub, plan, rtx.Config.Remote.Name)

			for _, res := range result.Results {
				if res.Err != nil {
					rtx.Splog.Error("%s: %v", res.Action.String(), res.Err)
				}
			}
			rtx.Splog.Info("%s", result.Summary())

			return result.Err()
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show the land plan without executing it")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Don't prompt for confirmation")

	return cmd
}

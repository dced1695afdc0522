package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"jflow.dev/jflow/internal/config"
	"jflow.dev/jflow/internal/engine"
	"jflow.dev/jflow/internal/output"
	"jflow.dev/jflow/internal/runtime"
)

// newSyncCmd creates the sync command
func newSyncCmd() *cobra.Command {
	var (
		dryRun      bool
		squash      bool
		appendStyle bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Point every bookmark at its change and push",
		Long: `Point every bookmark in the stack at its change's current commit, then push
the bookmarks that differ from the remote. Bookmarks already in place are
skipped; running sync twice in a row does nothing the second time.

With --append, pushes that would rewrite remote history are refused and
reported per bookmark instead of forced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if squash && appendStyle {
				return fmt.Errorf("--squash and --append are mutually exclusive")
			}

			rtx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			defer func() { _ = rtx.Close() }()

			pushStyle := rtx.Config.GitHub.PushStyle
			if squash {
				pushStyle = config.PushStyleSquash
			}
			if appendStyle {
				pushStyle = config.PushStyleAppend
			}

			stack, err := engine.BuildStack(cmd.Context(), rtx.Gateway, rtx.Config)
			if err != nil {
				return err
			}
			if stack.IsEmpty() {
				rtx.Splog.Info("nothing to sync: no changes on top of %s", stack.PrimaryRef)
				return nil
			}

			result := engine.SyncStack(cmd.Context(), rtx.Gateway, stack, engine.SyncOptions{
				DryRun:    dryRun,
				PushStyle: pushStyle,
			})

			formatter := output.NewFormatter()
			rtx.Splog.Page(formatter.RenderSyncResult(result, dryRun))

			if dryRun {
				rtx.Splog.Info("dry run: %d move(s), %d push(es) pending", result.Moves(), result.Pushes())
				return nil
			}

			return result.Err()
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report what would be done without mutating anything")
	cmd.Flags().BoolVar(&squash, "squash", false, "Force-push bookmarks (default behavior)")
	cmd.Flags().BoolVar(&appendStyle, "append", false, "Refuse pushes that would rewrite remote history")

	return cmd
}

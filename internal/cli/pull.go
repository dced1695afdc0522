package cli

import (
	"github.com/spf13/cobra"

	"jflow.dev/jflow/internal/engine"
	"jflow.dev/jflow/internal/runtime"
)

// newPullCmd creates the pull command
func newPullCmd() *cobra.Command {
	var remote string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch from the remote and rebase the stack",
		Long: `Fetch from the remote, then rebase the whole stack onto the updated primary
branch. A failed fetch changes nothing locally. Rebase conflicts are left
in place for resolution with jj; the conflicted change IDs are reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rtx, err := runtime.GetContext()
			if err != nil {
				return err
			}
			defer func() { _ = rtx.Close() }()

			if remote != "" {
				rtx.Config.Remote.Name = remote
			}

			result, err := engine.PullStack(cmd.Context(), rtx.Gateway, rtx.Config)
			if err != nil {
				return err
			}

			rtx.Splog.Info("rebased stack onto %s", result.PrimaryRef)
			return nil
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "Remote to fetch from (default from config)")

	return cmd
}

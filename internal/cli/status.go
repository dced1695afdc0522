package cli

import (
	"github.com/spf13/cobra"

	"jflow.dev/jflow/internal/engine"
	"jflow.dev/jflow/internal/output"
	"jflow.dev/jflow/internal/runtime"
)

// newStatusCmd creates the status command
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current stack",
		Long: `Show the changes between the primary branch and the working copy, with
each bookmark's remote tracking state and review request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	rtx, err := runtime.GetContext()
	if err != nil {
		return err
	}
	defer func() { _ = rtx.Close() }()

	stack, err := engine.BuildStack(cmd.Context(), rtx.Gateway, rtx.Config)
	if err != nil {
		return err
	}

	reviews := engine.CollectReviews(cmd.Context(), rtx.GitHub, stack)
	if rtx.GitHub == nil && !stack.IsEmpty() {
		rtx.Splog.Debug("review host unavailable, showing local state only")
	}

	formatter := output.NewFormatter()
	rtx.Splog.Page(formatter.RenderStack(stack, reviews))
	return nil
}

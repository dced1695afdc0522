package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"jflow.dev/jflow/internal/engine"
	"jflow.dev/jflow/internal/output"
	"jflow.dev/jflow/internal/runtime"
)

// newReorderCmd creates the reorder command
func newReorderCmd() *cobra.Command {
	var (
		invert bool
		from   string
	)

	cmd := &cobra.Command{
		Use:   "reorder [change...]",
		Short: "Rearrange the changes in the stack",
		Long: `Rebuild the stack with its changes in a new order. Given explicit change
IDs, they become the new bottom-to-top order; --invert reverses the stack
instead. --from widens either form downward to include that change.

The working copy follows the new tip. Conflicts produced by the rebases
are left in place for resolution with jj.`,
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

			var order []string
			switch {
			case invert:
				order, err = engine.InvertOrder(stack, from)
				if err != nil {
					return err
				}
				if len(order) < 2 {
					rtx.Splog.Info("fewer than two changes, nothing to invert")
					return nil
				}
			case len(args) > 0:
				order, err = engine.ResolveReorder(stack, args, from)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("specify changes to reorder, or use --invert")
			}

			result, err := engine.ReorderStack(cmd.Context(), rtx.Gateway, stack, order)
			if err != nil {
				return err
			}
			rtx.Splog.Info("reordered %d changes", len(result.Order))

			updated, err := engine.BuildStack(cmd.Context(), rtx.Gateway, rtx.Config)
			if err != nil {
				return err
			}
			formatter := output.NewFormatter()
			rtx.Splog.Page(formatter.RenderStack(updated, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&invert, "invert", false, "Reverse the stack instead of giving an explicit order")
	cmd.Flags().StringVarP(&from, "from", "f", "", "Lowest change to include, inclusive")

	return cmd
}

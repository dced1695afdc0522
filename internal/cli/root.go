// Package cli wires the cobra command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jf",
		Short: "Jflow coordinates stacks of jj changes with their pull requests",
		Long: `Jflow coordinates stacks of jj changes with their pull requests.

It keeps bookmarks pointing at the right commits, pushes them, retargets
review requests as the stack evolves, and lands merged changes bottom-up.
Nothing is tracked between invocations: every command re-derives the stack
from the repository.`,
		Version: formatVersion(version, commit, date),
		// Bare invocation shows the stack, same as "jf status".
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}

	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newPRCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newPullCmd())
	rootCmd.AddCommand(newLandCmd())
	rootCmd.AddCommand(newReorderCmd())
	rootCmd.AddCommand(newWipCmd())

	return rootCmd
}

func formatVersion(version, commit, date string) string {
	return version + " (" + commit + ", " + date + ")"
}

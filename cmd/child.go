package cmd

import (
	"github.com/sempr/judge-sandbox/internal/sandbox"
	"github.com/spf13/cobra"
)

var (
	childTimeLimit  int64
	childStackBytes int64
	childFSizeBytes int64
)

// childCmd is never invoked directly by a user; the parent re-execs itself
// with this subcommand to perform rlimit setup and the final exec in a
// freshly started, single-threaded process (see
// internal/sandbox/launcher.go). Everything after the "--" terminator is
// the resolved run argv to exec, not flags of this command.
var childCmd = &cobra.Command{
	Use:    "child",
	Hidden: true,
	Args:   cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sandbox.ChildMain(args, childTimeLimit, childStackBytes, childFSizeBytes)
	},
}

func init() {
	rootCmd.AddCommand(childCmd)

	childCmd.Flags().Int64Var(&childTimeLimit, "time", 1000, "time limit in ms")
	childCmd.Flags().Int64Var(&childStackBytes, "stack", 8<<20, "stack rlimit in bytes")
	childCmd.Flags().Int64Var(&childFSizeBytes, "fsize", 64_000_000, "output rlimit in bytes")
}

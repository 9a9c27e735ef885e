package main

import (
	"github.com/spf13/cobra"
)

var explainCmd = &cobra.Command{
	Use:   "explain <file.go>",
	Short: "Show which annotated declarations of a file are kept",
	Long:  "Evaluates every directive in the file under the plan for the selected target and prints keep or drop per declaration.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplain,
}

func init() {
	addWorkspaceFlags(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	e, _, err := openEngine(cmd)
	if err != nil {
		return commandFailure(cmd, "explain", err)
	}
	defer e.Close()

	target, err := selectedTarget(e)
	if err != nil {
		return commandFailure(cmd, "explain", err)
	}
	ex, err := e.Explain(cmd.Context(), args[0], target)
	if err != nil {
		return commandFailure(cmd, "explain", err)
	}
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: "explain", Results: ex})
}

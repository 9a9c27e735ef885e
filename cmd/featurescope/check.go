package main

import (
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the workspace configuration and source directives",
	Long: "Parses every featurescope.toml, resolves all edges, and checks every annotated declaration " +
		"for malformed directives, undeclared options and only() violations.",
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	addWorkspaceFlags(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	e, _, err := openEngine(cmd)
	if err != nil {
		return commandFailure(cmd, "check", err)
	}
	defer e.Close()

	report, err := e.Check(cmd.Context())
	if err != nil {
		return commandFailure(cmd, "check", err)
	}
	if err := outputResult(cmd.OutOrStdout(), CLIResult{Command: "check", Results: report}); err != nil {
		return err
	}
	if !report.OK() {
		return exitWith(2)
	}
	return nil
}

package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jward/featurescope"
	"github.com/jward/featurescope/internal/intercept"
	"github.com/jward/featurescope/internal/manifest"
)

var (
	flagWorkspace string
	flagPackage   string
)

// addWorkspaceFlags registers the flags shared by the inspection commands.
func addWorkspaceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagWorkspace, "workspace", "", "workspace root (default: nearest go.work or go.mod)")
	cmd.Flags().StringVar(&flagPackage, "package", "", "top-level consumer (default: member containing the working directory)")
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the resolved build plan for a target",
	Long:  "Resolves the workspace configuration and prints the edges and tokens a build of the selected module would use.",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

func init() {
	addWorkspaceFlags(planCmd)
}

// openEngine loads settings and the workspace for an inspection command.
func openEngine(cmd *cobra.Command) (*featurescope.Engine, *log.Logger, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	root := flagWorkspace
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, nil, err
		}
		root = manifest.FindRoot(cwd)
	}
	opts := []featurescope.Option{featurescope.WithLogger(logger)}
	if cfg.Cache {
		opts = append(opts, featurescope.WithCache(cachePath(cfg, root)))
	}
	e, err := featurescope.New(root, opts...)
	if err != nil {
		return nil, nil, err
	}
	return e, logger, nil
}

// selectedTarget applies --package, else the member containing the
// working directory.
func selectedTarget(e *featurescope.Engine) (featurescope.PackageID, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return intercept.SelectTarget(e.Workspace(), intercept.Args{Package: flagPackage}, cwd)
}

// commandFailure reports err and exits with its configuration-stage code.
func commandFailure(cmd *cobra.Command, name string, err error) error {
	outputError(cmd.OutOrStdout(), cmd.ErrOrStderr(), name, err)
	return exitWith(intercept.ConfigExitCode(err))
}

func runPlan(cmd *cobra.Command, args []string) error {
	e, _, err := openEngine(cmd)
	if err != nil {
		return commandFailure(cmd, "plan", err)
	}
	defer e.Close()

	target, err := selectedTarget(e)
	if err != nil {
		return commandFailure(cmd, "plan", err)
	}
	plan, err := e.Plan(cmd.Context(), target)
	if err != nil {
		return commandFailure(cmd, "plan", err)
	}
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: "plan", Results: plan})
}

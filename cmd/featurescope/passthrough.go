package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/featurescope"
	"github.com/jward/featurescope/internal/intercept"
	"github.com/jward/featurescope/internal/manifest"
	"github.com/jward/featurescope/internal/settings"
)

func newBuildVerbCmd(verb string) *cobra.Command {
	return &cobra.Command{
		Use:                verb + " [--package module] [--workspace dir] [go flags] [packages]",
		Short:              fmt.Sprintf("Run go %s with scoped build options", verb),
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(rawArgs) > 0 && rawArgs[0] != verb {
				// Global go flags such as -C came before the verb.
				return runGo(cmd, rawArgs)
			}
			return runGo(cmd, append([]string{verb}, args...))
		},
	}
}

// runGo runs one go command line as a single child process. Build verbs get
// the resolved plan injected through -toolexec; everything else is
// forwarded as is. Failures before the child starts map to the
// configuration-stage exit codes.
func runGo(cmd *cobra.Command, raw []string) error {
	ctx := cmd.Context()
	stderr := cmd.ErrOrStderr()

	cfg, logger, err := setup(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "featurescope: %v\n", err)
		return exitWith(intercept.ExitInternal)
	}
	args, err := intercept.ParseArgs(raw)
	if err != nil {
		fmt.Fprintf(stderr, "featurescope: %v\n", err)
		return exitWith(2)
	}

	runner := &intercept.Runner{
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
		Stderr: stderr,
		Logger: logger,
	}
	if !intercept.IsBuildVerb(args.Verb) {
		return exitWith(intercept.ExitCode(runner.Exec(ctx, intercept.Command(cfg.Go, args, ""))))
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "featurescope: %v\n", err)
		return exitWith(intercept.ExitInternal)
	}
	root := args.Workspace
	if root == "" {
		base := cwd
		if dir := args.Dir(); dir != "" {
			base = filepath.Join(cwd, dir)
			if filepath.IsAbs(dir) {
				base = dir
			}
		}
		root = manifest.FindRoot(base)
	}

	opts := []featurescope.Option{featurescope.WithLogger(logger)}
	if cfg.Cache {
		opts = append(opts, featurescope.WithCache(cachePath(cfg, root)))
	}
	engine, err := featurescope.New(root, opts...)
	if errors.Is(err, manifest.ErrNoWorkspace) {
		// Outside any module there is nothing to scope; let go report it.
		logger.Debug("no workspace, forwarding unchanged", "root", root)
		return exitWith(intercept.ExitCode(runner.Exec(ctx, intercept.Command(cfg.Go, args, ""))))
	}
	if err != nil {
		return configFailure(stderr, err)
	}
	defer engine.Close()

	target, err := intercept.SelectTarget(engine.Workspace(), args, cwd)
	if err != nil {
		return configFailure(stderr, err)
	}
	plan, err := engine.Plan(ctx, target)
	if err != nil {
		return configFailure(stderr, err)
	}

	self, err := os.Executable()
	if err != nil {
		fmt.Fprintf(stderr, "featurescope: %v\n", err)
		return exitWith(intercept.ExitInternal)
	}
	toolexec, err := intercept.JoinQuoted(intercept.ToolexecWords(self, plan, args.Toolexec))
	if err != nil {
		fmt.Fprintf(stderr, "featurescope: %v\n", err)
		return exitWith(intercept.ExitInternal)
	}

	logger.Debug("build plan", "target", plan.Target, "units", len(plan.Units), "fingerprint", plan.Fingerprint)
	argv := intercept.Command(cfg.Go, args, toolexec)
	return exitWith(intercept.ExitCode(runner.Exec(ctx, argv)))
}

func configFailure(w io.Writer, err error) error {
	fmt.Fprintf(w, "featurescope: %v\n", err)
	return exitWith(intercept.ConfigExitCode(err))
}

func cachePath(cfg *settings.Settings, root string) string {
	if cfg.CacheDir != "" {
		return filepath.Join(cfg.CacheDir, "cache.db")
	}
	return featurescope.DefaultCachePath(root)
}

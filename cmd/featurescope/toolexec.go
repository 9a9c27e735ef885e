package main

import (
	"fmt"

	"github.com/anmitsu/go-shlex"
	"github.com/spf13/cobra"

	"github.com/jward/featurescope/internal/encode"
	"github.com/jward/featurescope/internal/intercept"
	"github.com/jward/featurescope/internal/scope"
)

var (
	flagScopes      []string
	flagTokens      []string
	flagFingerprint string
	flagChain       string
)

// toolexecCmd is what the go command runs in front of each tool during a
// wrapped build.
var toolexecCmd = &cobra.Command{
	Use:    "toolexec [flags] -- <tool> [args...]",
	Short:  "Prune annotated sources before the compiler runs",
	Hidden: true,
	Args:   cobra.MinimumNArgs(1),
	RunE:   runToolexec,
}

func init() {
	toolexecCmd.Flags().StringArrayVar(&flagScopes, "scope", nil, "scoped unit as <module>=<dir> (repeatable)")
	toolexecCmd.Flags().StringArrayVar(&flagTokens, "token", nil, "active token <module>:<option> (repeatable)")
	toolexecCmd.Flags().StringVar(&flagFingerprint, "fingerprint", "", "plan fingerprint added to tool versions")
	toolexecCmd.Flags().StringVar(&flagChain, "chain", "", "user toolexec command to run the tool through")
}

func runToolexec(cmd *cobra.Command, args []string) error {
	stderr := cmd.ErrOrStderr()
	_, logger, err := setup(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "featurescope: %v\n", err)
		return exitWith(intercept.ExitInternal)
	}

	shim := &scope.Shim{
		Fingerprint: flagFingerprint,
		Stdout:      cmd.OutOrStdout(),
		Stderr:      stderr,
		Logger:      logger,
		Exec: &intercept.Runner{
			Stdin:  cmd.InOrStdin(),
			Stdout: cmd.OutOrStdout(),
			Stderr: stderr,
			Logger: logger,
		},
	}
	for _, s := range flagScopes {
		u, err := scope.ParseUnit(s)
		if err != nil {
			fmt.Fprintf(stderr, "featurescope: %v\n", err)
			return exitWith(intercept.ExitInternal)
		}
		shim.Units = append(shim.Units, u)
	}
	for _, t := range flagTokens {
		shim.Tokens = append(shim.Tokens, encode.Token(t))
	}
	if flagChain != "" {
		chain, err := shlex.Split(flagChain, true)
		if err != nil {
			fmt.Fprintf(stderr, "featurescope: --chain: %v\n", err)
			return exitWith(intercept.ExitInternal)
		}
		shim.Chain = chain
	}

	return exitWith(intercept.ExitCode(shim.Run(cmd.Context(), args)))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jward/featurescope/internal/intercept"
	"github.com/jward/featurescope/internal/settings"
)

var flagFormat string

// rawArgs is the command line as given, so build verbs can forward go
// flags that precede the verb.
var rawArgs []string

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// exitError carries a status that main exits with and never prints.
type exitError struct {
	code intercept.ExitCode
}

func (e *exitError) Error() string { return "exit status " + e.code.String() }

func exitWith(code intercept.ExitCode) error {
	if code.IsSuccess() {
		return nil
	}
	return &exitError{code: code}
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	errorHandled = false
	rawArgs = args
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return int(ee.code)
	}
	if !errorHandled {
		fmt.Fprintf(stderr, "Error: %s\n", err)
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:   "featurescope <go command> [arguments]",
	Short: "Build Go workspaces with per-consumer build options",
	Long: "featurescope wraps the go command. Build commands compile every workspace module " +
		"with the options its top-level consumer selected in featurescope.toml; every other " +
		"command is passed to go unchanged.",
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableFlagParsing: true,
	Args:               cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
			return cmd.Help()
		}
		return runGo(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")

	for _, verb := range intercept.BuildVerbs {
		rootCmd.AddCommand(newBuildVerbCmd(verb))
	}
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(toolexecCmd)
}

// setup loads settings and builds the logger every command shares.
func setup(cmd *cobra.Command) (*settings.Settings, *log.Logger, error) {
	cfg, path, err := settings.Load(cmd.Context(), settings.LoadOptions{})
	if err != nil {
		return nil, nil, err
	}
	level, _ := cfg.Level()
	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix: "featurescope",
		Level:  level,
	})
	if path != "" {
		logger.Debug("loaded settings", "path", path)
	}
	return cfg, logger, nil
}

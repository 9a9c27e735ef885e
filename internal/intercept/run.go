package intercept

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
)

// Runner starts exactly one child process per call, wired to the caller's
// streams, and reports its exit status.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
	// Env is the child's environment; nil inherits the wrapper's.
	Env []string
	// Forward lists the signals relayed to the child. Nil means SIGINT and
	// SIGTERM.
	Forward []os.Signal
}

// Exec runs argv and returns the code the wrapper should exit with.
func (r *Runner) Exec(ctx context.Context, argv []string) int {
	cmd := r.command(ctx, argv)
	cmd.Stdout = r.Stdout
	return int(r.run(cmd))
}

// Output runs argv and returns its standard output.
func (r *Runner) Output(ctx context.Context, argv []string) ([]byte, int) {
	var out bytes.Buffer
	cmd := r.command(ctx, argv)
	cmd.Stdout = &out
	code := r.run(cmd)
	return out.Bytes(), int(code)
}

func (r *Runner) command(ctx context.Context, argv []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = r.Stdin
	cmd.Stderr = r.Stderr
	cmd.Env = r.Env
	return cmd
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

func (r *Runner) run(cmd *exec.Cmd) ExitCode {
	r.logger().Debug("exec", "argv", cmd.Args)
	if err := cmd.Start(); err != nil {
		fmt.Fprintf(r.Stderr, "featurescope: %v\n", err)
		return ExitNotFound
	}

	forward := r.Forward
	if forward == nil {
		forward = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, forward...)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigs:
				r.logger().Debug("forwarding signal", "signal", sig)
				if err := cmd.Process.Signal(sig); err != nil {
					r.logger().Debug("forward signal failed", "err", err)
				}
			case <-done:
				return
			}
		}
	}()

	err := cmd.Wait()
	signal.Stop(sigs)
	close(done)
	return exitStatus(err)
}

func exitStatus(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return ExitInternal
	}
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ExitSignalBase + ExitCode(ws.Signal())
	}
	return ExitCode(ee.ExitCode())
}

//go:build unix

package intercept

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func killSelf() {
	_ = syscall.Kill(os.Getpid(), syscall.SIGKILL)
	time.Sleep(time.Minute)
}

// waitForInterrupt reports readiness, then exits 42 shortly after the first
// SIGINT so the parent can tell it waited.
func waitForInterrupt() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	fmt.Fprintln(os.Stdout, "ready")
	select {
	case <-sigs:
		time.Sleep(100 * time.Millisecond)
		fmt.Fprint(os.Stdout, "interrupted")
		os.Exit(42)
	case <-time.After(30 * time.Second):
		os.Exit(1)
	}
}

// readyWriter records output and closes ready once marker has been written.
type readyWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	marker string
	once   sync.Once
	ready  chan struct{}
}

func newReadyWriter(marker string) *readyWriter {
	return &readyWriter{marker: marker, ready: make(chan struct{})}
}

func (w *readyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(p)
	if strings.Contains(w.buf.String(), w.marker) {
		w.once.Do(func() { close(w.ready) })
	}
	return n, err
}

func (w *readyWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestRunner_KilledBySignal(t *testing.T) {
	t.Parallel()
	r, _, _ := helperRunner("GO_HELPER_KILL_SELF=1")
	code := r.Exec(context.Background(), helperArgv())
	assert.Equal(t, int(ExitSignalBase)+int(syscall.SIGKILL), code)
}

// Not parallel: the test interrupts its own process.
func TestRunner_ForwardsInterrupt(t *testing.T) {
	// Keeps SIGINT from terminating the test binary outside Exec.
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, os.Interrupt)
	defer signal.Stop(guard)

	stdout := newReadyWriter("ready\n")
	r := &Runner{
		Stdout: stdout,
		Stderr: io.Discard,
		Env:    append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "GO_HELPER_WAIT_INTERRUPT=1"),
	}
	result := make(chan int, 1)
	go func() { result <- r.Exec(context.Background(), helperArgv()) }()

	select {
	case <-stdout.ready:
	case code := <-result:
		t.Fatalf("child exited early with %d: %q", code, stdout.String())
	case <-time.After(30 * time.Second):
		t.Fatal("child never became ready")
	}

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(30 * time.Second)
	for {
		require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
		select {
		case code := <-result:
			assert.Equal(t, 42, code)
			assert.Equal(t, "ready\ninterrupted", stdout.String(), "Exec returns after the child finished")
			return
		case <-tick.C:
		case <-deadline:
			t.Fatal("interrupt was not forwarded")
		}
	}
}

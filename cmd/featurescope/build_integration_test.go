package main_test

import (
	"bytes"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the featurescope CLI into a temp directory.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "featurescope"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "featurescope")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot walks up from the test file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "go.mod not found")
		dir = parent
	}
}

// copyWorkspace copies testdata/workspace into a temp dir.
func copyWorkspace(t *testing.T) string {
	t.Helper()
	src := filepath.Join(projectRoot(t), "testdata", "workspace")
	dst := t.TempDir()
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	require.NoError(t, err)
	return dst
}

func skipUnlessReleaseToolchain(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	// Development toolchains key compiled packages on their build ID only,
	// so differently pruned variants would share cache entries.
	if strings.HasPrefix(runtime.Version(), "devel") {
		t.Skip("requires a release go toolchain")
	}
}

func runWrapped(t *testing.T, bin, dir string, env []string, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err := cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else {
		require.NoError(t, err)
	}
	return out.String(), errOut.String(), code
}

func TestBuild_PerConsumerVariants(t *testing.T) {
	skipUnlessReleaseToolchain(t)
	bin := buildBinary(t)
	ws := copyWorkspace(t)
	env := []string{
		"GOCACHE=" + t.TempDir(),
		"GOTOOLCHAIN=local",
		"GOFLAGS=",
		"XDG_CONFIG_HOME=" + t.TempDir(),
	}

	stdout, stderr, code := runWrapped(t, bin, ws, env, "run", "./entry_default")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "a type\ndefault type\n", stdout)

	stdout, stderr, code = runWrapped(t, bin, ws, env, "run", "./entry_custom")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "b type\nb type\n", stdout)

	// The first variant must not be served from the second one's cache entry.
	stdout, stderr, code = runWrapped(t, bin, ws, env, "run", "./entry_default")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "a type\ndefault type\n", stdout)

	assert.FileExists(t, filepath.Join(ws, ".featurescope", "cache.db"))
}

func TestBuild_DirectiveDiagnostic(t *testing.T) {
	skipUnlessReleaseToolchain(t)
	bin := buildBinary(t)
	ws := copyWorkspace(t)
	bad := "package types\n\nfunc Extra() {}\n\n//featurescope:if a\n"
	require.NoError(t, os.WriteFile(filepath.Join(ws, "types", "extra.go"), []byte(bad), 0o644))
	env := []string{
		"GOCACHE=" + t.TempDir(),
		"GOTOOLCHAIN=local",
		"GOFLAGS=",
		"XDG_CONFIG_HOME=" + t.TempDir(),
		"FEATURESCOPE_CACHE=false",
	}

	out := filepath.Join(t.TempDir(), "entry_default")
	_, stderr, code := runWrapped(t, bin, ws, env, "build", "-o", out, "./entry_default")
	assert.NotEqual(t, 0, code)
	assert.Contains(t, stderr, filepath.Join(ws, "types", "extra.go")+":5:1:")
	assert.NoFileExists(t, out)
}

func TestPassthrough_GoVersion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	stdout, stderr, code := runWrapped(t, bin, t.TempDir(), []string{"XDG_CONFIG_HOME=" + t.TempDir()}, "version")
	require.Equal(t, 0, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "go version "), stdout)
}

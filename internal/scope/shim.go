package scope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jward/featurescope/internal/encode"
	"github.com/jward/featurescope/internal/manifest"
	"github.com/jward/featurescope/internal/syntax"
)

// Exit codes reported by the shim itself.
const (
	ExitFailure     = 1
	ExitDiagnostics = 2
)

// Executor runs the real tool.
type Executor interface {
	// Exec runs argv with the caller's streams and returns its exit code.
	Exec(ctx context.Context, argv []string) int
	// Output runs argv and returns what it wrote to stdout.
	Output(ctx context.Context, argv []string) ([]byte, int)
}

// Unit is a module whose sources are subject to pruning.
type Unit struct {
	Package manifest.PackageID
	Dir     string
}

// ParseUnit decodes a "<module>=<dir>" argument.
func ParseUnit(s string) (Unit, error) {
	pkg, dir, ok := strings.Cut(s, "=")
	if !ok || pkg == "" || dir == "" {
		return Unit{}, fmt.Errorf("invalid scope %q, want <module>=<dir>", s)
	}
	return Unit{Package: manifest.PackageID(pkg), Dir: filepath.Clean(dir)}, nil
}

// Shim sits between the go command and its tools. Compiler invocations get
// their annotated sources pruned; everything else runs untouched.
type Shim struct {
	Units       []Unit
	Tokens      []encode.Token
	Fingerprint string
	// Chain is a toolexec program the user configured, run in front of the tool.
	Chain []string

	Exec   Executor
	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
	// TempDir is the parent of the per-invocation scratch directory.
	TempDir string

	nested map[string]bool
}

// Run handles one tool invocation and returns the exit code to report.
func (s *Shim) Run(ctx context.Context, tool []string) int {
	if len(tool) == 0 {
		fmt.Fprintln(s.Stderr, "featurescope: toolexec: missing tool command")
		return ExitFailure
	}

	if isVersionQuery(tool) {
		out, code := s.Exec.Output(ctx, s.chained(tool))
		if code != 0 {
			_, _ = s.Stdout.Write(out)
			return code
		}
		fmt.Fprint(s.Stdout, AppendFingerprint(string(out), s.Fingerprint))
		return 0
	}

	if toolName(tool[0]) != "compile" || len(s.Units) == 0 {
		return s.Exec.Exec(ctx, s.chained(tool))
	}

	work := &scratch{parent: s.TempDir}
	defer work.cleanup()

	args, err := s.rewriteArgs(ctx, work, tool[1:], true)
	if err != nil {
		var diags Diagnostics
		if errors.As(err, &diags) {
			for _, d := range diags {
				fmt.Fprintln(s.Stderr, d.String())
			}
			return ExitDiagnostics
		}
		fmt.Fprintf(s.Stderr, "featurescope: %v\n", err)
		return ExitFailure
	}
	return s.Exec.Exec(ctx, s.chained(append([]string{tool[0]}, args...)))
}

func (s *Shim) chained(tool []string) []string {
	return append(slices.Clone(s.Chain), tool...)
}

func (s *Shim) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

// rewriteArgs swaps annotated source files for pruned copies. Response
// files (@file) are expanded, rewritten and written back out.
func (s *Shim) rewriteArgs(ctx context.Context, work *scratch, args []string, top bool) ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	out := slices.Clone(args)
	var diags Diagnostics
	for i, a := range args {
		if top && strings.HasPrefix(a, "@") {
			inner, err := readResponseFile(a[1:])
			if err != nil {
				return nil, err
			}
			rewritten, err := s.rewriteArgs(ctx, work, inner, false)
			if err != nil {
				return nil, err
			}
			if slices.Equal(inner, rewritten) {
				continue
			}
			path, err := work.write(fmt.Sprintf("%03d.args", i), encodeResponseFile(rewritten))
			if err != nil {
				return nil, err
			}
			out[i] = "@" + path
			continue
		}
		if strings.HasPrefix(a, "-") || !syntax.IsGoFile(a) {
			continue
		}

		path := a
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}
		unit, ok := s.unitFor(path)
		if !ok {
			continue
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		pruned, changed, err := Prune(ctx, path, src, NewEnv(unit.Package, s.Tokens))
		if err != nil {
			var d Diagnostics
			if errors.As(err, &d) {
				diags = append(diags, d...)
				continue
			}
			return nil, err
		}
		if !changed {
			continue
		}

		body := make([]byte, 0, len(pruned)+len(path)+16)
		body = fmt.Appendf(body, "//line %s:1:1\n", path)
		body = append(body, pruned...)
		name := fmt.Sprintf("%03d_%s", i, filepath.Base(path))
		tmp, err := work.write(name, body)
		if err != nil {
			return nil, err
		}
		s.logger().Debug("pruned source", "package", unit.Package, "file", path, "tmp", tmp)
		out[i] = tmp
	}
	if len(diags) > 0 {
		return nil, diags
	}
	return out, nil
}

// unitFor maps a source file to the unit owning its directory. Files in a
// nested module below a unit's directory belong to that nested module and
// are not pruned.
func (s *Shim) unitFor(path string) (Unit, bool) {
	var best Unit
	found := false
	for _, u := range s.Units {
		if withinDir(u.Dir, path) && len(u.Dir) > len(best.Dir) {
			best, found = u, true
		}
	}
	if !found {
		return Unit{}, false
	}
	for dir := filepath.Dir(path); dir != best.Dir && withinDir(best.Dir, dir); dir = filepath.Dir(dir) {
		if s.hasGoMod(dir) {
			return Unit{}, false
		}
	}
	return best, true
}

func (s *Shim) hasGoMod(dir string) bool {
	if s.nested == nil {
		s.nested = make(map[string]bool)
	}
	if v, ok := s.nested[dir]; ok {
		return v
	}
	_, err := os.Stat(filepath.Join(dir, "go.mod"))
	s.nested[dir] = err == nil
	return err == nil
}

func withinDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isVersionQuery(tool []string) bool {
	return len(tool) == 2 && strings.HasPrefix(tool[1], "-V=")
}

func toolName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".exe")
}

// AppendFingerprint adds the plan fingerprint to a tool's -V=full line so
// the go command's build cache keys on it. Development toolchains end the
// line with a buildID= field, which must stay last.
func AppendFingerprint(line, fingerprint string) string {
	line = strings.TrimRight(line, "\r\n")
	field := "featurescope=" + fingerprint
	f := strings.Fields(line)
	if n := len(f); n > 0 && strings.HasPrefix(f[n-1], "buildID=") {
		i := strings.LastIndex(line, f[n-1])
		return line[:i] + field + " " + line[i:] + "\n"
	}
	return line + " " + field + "\n"
}

// scratch is a lazily created temporary directory.
type scratch struct {
	parent string
	dir    string
}

func (w *scratch) write(name string, data []byte) (string, error) {
	if w.dir == "" {
		dir, err := os.MkdirTemp(w.parent, "featurescope-")
		if err != nil {
			return "", fmt.Errorf("create scratch dir: %w", err)
		}
		w.dir = dir
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func (w *scratch) cleanup() {
	if w.dir != "" {
		_ = os.RemoveAll(w.dir)
	}
}

// Response files hold one argument per line with '\\' and '\n' escaped.
func readResponseFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read response file: %w", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	args := make([]string, len(lines))
	for i, l := range lines {
		args[i] = decodeArg(l)
	}
	return args, nil
}

func encodeResponseFile(args []string) []byte {
	var b strings.Builder
	for _, a := range args {
		a = strings.ReplaceAll(a, `\`, `\\`)
		a = strings.ReplaceAll(a, "\n", `\n`)
		b.WriteString(a)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func decodeArg(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

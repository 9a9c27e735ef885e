package featurescope

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jward/featurescope/internal/encode"
	"github.com/jward/featurescope/internal/manifest"
	"github.com/jward/featurescope/internal/resolve"
	"github.com/jward/featurescope/internal/scope"
)

// Report summarizes a workspace check.
type Report struct {
	Members     int          `json:"members"`
	Edges       int          `json:"edges"`
	Files       int          `json:"files"`
	Items       int          `json:"items"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// OK reports whether the check found no problems.
func (r *Report) OK() bool { return len(r.Diagnostics) == 0 }

// Check validates the configuration and every annotated source file of
// every member: directives must parse, name options their module declares,
// and hold no only() violation under any edge into the module.
// Configuration errors are returned as errors; source problems are
// collected in the report.
func (e *Engine) Check(ctx context.Context) (*Report, error) {
	res, err := e.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Members: len(e.ws.Packages), Edges: len(res.Edges)}
	var (
		mu    sync.Mutex
		diags []Diagnostic
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, p := range e.ws.Packages {
		files, err := sourceFiles(p.Dir)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", p.Dir, err)
		}
		envs := edgeEnvs(res, p.ID)
		for _, file := range files {
			g.Go(func() error {
				items, found, err := checkFile(gctx, file, p, envs)
				if err != nil {
					return err
				}
				mu.Lock()
				report.Files++
				report.Items += items
				diags = append(diags, found...)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(diags, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Column, b.Column),
			cmp.Compare(a.Msg, b.Msg),
		)
	})
	report.Diagnostics = slices.CompactFunc(diags, func(a, b Diagnostic) bool { return a.String() == b.String() })
	if report.Diagnostics == nil {
		report.Diagnostics = []Diagnostic{}
	}
	e.logger.Debug("checked workspace", "files", report.Files, "items", report.Items, "problems", len(report.Diagnostics))
	return report, nil
}

// edgeEnv pairs a consumer with the guard environment its edge produces.
type edgeEnv struct {
	consumer PackageID
	env      *scope.TokenEnv
}

func edgeEnvs(res *resolve.Resolution, pkg PackageID) []edgeEnv {
	var out []edgeEnv
	for _, e := range res.Edges {
		if e.Dependency != pkg {
			continue
		}
		toks := encode.Encode([]resolve.Edge{e})[pkg]
		out = append(out, edgeEnv{consumer: e.Consumer, env: scope.NewEnv(pkg, toks)})
	}
	return out
}

func checkFile(ctx context.Context, file string, p *manifest.Package, envs []edgeEnv) (int, []Diagnostic, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return 0, nil, err
	}
	items, err := scope.Scan(ctx, file, src)
	if err != nil {
		var ds scope.Diagnostics
		if errors.As(err, &ds) {
			return 0, ds, nil
		}
		return 0, nil, err
	}

	var diags []Diagnostic
	for _, it := range items {
		for _, d := range it.Directives {
			for _, name := range scope.Names(d.Expr) {
				if name == manifest.DefaultOption || (p.Declaration != nil && p.Declaration.Has(name)) {
					continue
				}
				diags = append(diags, Diagnostic{
					File: file, Line: d.Line, Column: d.Column,
					Msg: fmt.Sprintf("%s: option %q is not declared by %s", it.Name, name, p.ID),
					Err: resolve.ErrUnknownOption,
				})
			}
		}
	}
	for _, ee := range envs {
		if _, err := scope.Evaluate(file, items, ee.env); err != nil {
			var ds scope.Diagnostics
			if !errors.As(err, &ds) {
				return 0, nil, err
			}
			for _, d := range ds {
				d.Msg = fmt.Sprintf("%s (when built for %s)", d.Msg, ee.consumer)
				diags = append(diags, d)
			}
		}
	}
	return len(items), diags, nil
}

// sourceFiles lists the .go files that belong to the module rooted at dir,
// skipping the directories the go command ignores and nested modules.
func sourceFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == dir {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" || name == "vendor" {
				return filepath.SkipDir
			}
			if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".go") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

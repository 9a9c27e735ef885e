package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/mod/modfile"
)

// ErrNoWorkspace is returned when root holds neither go.work nor go.mod.
var ErrNoWorkspace = errors.New("no go.work or go.mod found")

// Load parses the workspace rooted at root. A go.work file makes every `use`
// directory a member; otherwise root/go.mod is the only member.
func Load(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root %q: %w", root, err)
	}

	workPath := filepath.Join(abs, "go.work")
	data, err := os.ReadFile(workPath)
	switch {
	case err == nil:
		return loadWork(abs, workPath, data)
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("reading %s: %w", workPath, err)
	}

	modPath := filepath.Join(abs, "go.mod")
	if _, err := os.Stat(modPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ParseError{File: abs, Msg: "loading workspace", Err: ErrNoWorkspace}
		}
		return nil, fmt.Errorf("stat %s: %w", modPath, err)
	}
	pkg, err := loadPackage(abs)
	if err != nil {
		return nil, err
	}
	return newWorkspace(abs, "", []*Package{pkg}), nil
}

func loadWork(root, workPath string, data []byte) (*Workspace, error) {
	wf, err := modfile.ParseWork(workPath, data, nil)
	if err != nil {
		return nil, &ParseError{File: workPath, Msg: "parsing go.work", Err: err}
	}

	var pkgs []*Package
	seen := make(map[PackageID]string)
	for _, use := range wf.Use {
		dir := use.Path
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, filepath.FromSlash(dir))
		}
		pkg, err := loadPackage(dir)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[pkg.ID]; dup {
			return nil, &ParseError{
				File: workPath,
				Line: use.Syntax.Start.Line,
				Msg:  fmt.Sprintf("module %s is used twice (%s and %s)", pkg.ID, prev, pkg.Dir),
			}
		}
		seen[pkg.ID] = pkg.Dir
		pkgs = append(pkgs, pkg)
	}
	return newWorkspace(root, workPath, pkgs), nil
}

// loadPackage reads dir/go.mod and, when present, dir/featurescope.toml.
func loadPackage(dir string) (*Package, error) {
	modPath := filepath.Join(dir, "go.mod")
	data, err := os.ReadFile(modPath)
	if err != nil {
		return nil, &ParseError{File: modPath, Msg: "reading go.mod", Err: err}
	}
	mf, err := modfile.Parse(modPath, data, nil)
	if err != nil {
		return nil, &ParseError{File: modPath, Msg: "parsing go.mod", Err: err}
	}
	if mf.Module == nil {
		return nil, parseErrorf(modPath, "missing module directive")
	}

	pkg := &Package{
		ID:      PackageID(mf.Module.Mod.Path),
		Dir:     filepath.Clean(dir),
		ModFile: modPath,
	}
	for _, r := range mf.Require {
		pkg.Requires = append(pkg.Requires, PackageID(r.Mod.Path))
	}
	slices.Sort(pkg.Requires)
	pkg.Requires = slices.Compact(pkg.Requires)

	metaPath := filepath.Join(dir, MetadataFile)
	meta, err := os.ReadFile(metaPath)
	switch {
	case err == nil:
		decl, overrides, err := ParseMetadata(metaPath, pkg.ID, meta)
		if err != nil {
			return nil, err
		}
		pkg.MetadataPath = metaPath
		pkg.Declaration = decl
		pkg.Overrides = overrides
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("reading %s: %w", metaPath, err)
	}
	return pkg, nil
}

// FindRoot walks up from start looking for go.work, falling back to the
// nearest directory holding go.mod. It returns start when neither exists.
func FindRoot(start string) string {
	var nearestMod string
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.work")); err == nil {
			return dir
		}
		if nearestMod == "" {
			if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
				nearestMod = dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if nearestMod != "" {
		return nearestMod
	}
	return start
}

// Package manifest loads the configuration model of a Go workspace: the
// members listed in go.work (or a lone go.mod), their require graph, and the
// option declarations and overrides found in each member's featurescope.toml.
//
// Everything returned by Load is immutable; resolution and encoding operate on
// the loaded value and never re-read the filesystem.
package manifest

import (
	"path/filepath"
	"slices"
	"strings"
)

// MetadataFile is the per-module file holding declarations and overrides.
const MetadataFile = "featurescope.toml"

// DefaultOption is the reserved option name that lists a declaration's
// defaults. It can never be declared as an option of its own.
const DefaultOption OptionName = "default"

// PackageID identifies a workspace member by its module path.
type PackageID string

// OptionName is an option identifier local to the declaring package.
type OptionName string

// Declaration is the option universe a package exposes to its consumers.
type Declaration struct {
	// Defaults is the ordered list of options active when no override applies.
	Defaults []OptionName
	// All is the sorted set of declared options. Defaults is a subset.
	All []OptionName
	// Implies maps an option to the options it switches on transitively.
	Implies map[OptionName][]OptionName
}

// Has reports whether name is a declared option.
func (d *Declaration) Has(name OptionName) bool {
	_, ok := slices.BinarySearch(d.All, name)
	return ok
}

// Override is a consumer's explicit selection of a dependency's options.
type Override struct {
	Consumer        PackageID
	Dependency      PackageID
	Selected        []OptionName
	IncludeDefaults bool

	// File and Index locate the block for diagnostics.
	File  string
	Index int
}

// Package is one workspace member.
type Package struct {
	ID  PackageID
	Dir string

	// ModFile is the absolute path of the member's go.mod.
	ModFile string
	// MetadataPath is the absolute path of featurescope.toml, or "" when the
	// member has none.
	MetadataPath string

	// Requires lists every module path required by go.mod, sorted.
	Requires []PackageID

	Declaration *Declaration
	Overrides   []Override
}

// Workspace is the parsed, immutable configuration model.
type Workspace struct {
	Root string
	// WorkFile is the go.work path, or "" in single-module mode.
	WorkFile string
	// Packages are sorted by ID.
	Packages []*Package

	byID map[PackageID]*Package
}

func newWorkspace(root, workFile string, pkgs []*Package) *Workspace {
	slices.SortFunc(pkgs, func(a, b *Package) int { return strings.Compare(string(a.ID), string(b.ID)) })
	w := &Workspace{
		Root:     root,
		WorkFile: workFile,
		Packages: pkgs,
		byID:     make(map[PackageID]*Package, len(pkgs)),
	}
	for _, p := range pkgs {
		w.byID[p.ID] = p
	}
	return w
}

// Package returns the member with the given module path.
func (w *Workspace) Package(id PackageID) (*Package, bool) {
	p, ok := w.byID[id]
	return p, ok
}

// Declarations returns every member declaration keyed by package.
func (w *Workspace) Declarations() map[PackageID]*Declaration {
	out := make(map[PackageID]*Declaration)
	for _, p := range w.Packages {
		if p.Declaration != nil {
			out[p.ID] = p.Declaration
		}
	}
	return out
}

// Overrides returns every override block in the workspace, in package order
// and then file order.
func (w *Workspace) Overrides() []Override {
	var out []Override
	for _, p := range w.Packages {
		out = append(out, p.Overrides...)
	}
	return out
}

// PackageForDir returns the member whose directory most specifically
// contains dir. Nested modules win over their parents.
func (w *Workspace) PackageForDir(dir string) (*Package, bool) {
	dir = filepath.Clean(dir)
	var best *Package
	for _, p := range w.Packages {
		if !withinDir(p.Dir, dir) {
			continue
		}
		if best == nil || len(p.Dir) > len(best.Dir) {
			best = p
		}
	}
	return best, best != nil
}

// InputFiles returns every file the model was parsed from, sorted. The list
// is what a cache key over the configuration has to cover.
func (w *Workspace) InputFiles() []string {
	var files []string
	if w.WorkFile != "" {
		files = append(files, w.WorkFile)
	}
	for _, p := range w.Packages {
		files = append(files, p.ModFile)
		if p.MetadataPath != "" {
			files = append(files, p.MetadataPath)
		}
	}
	slices.Sort(files)
	return files
}

// withinDir reports whether path is parent or lies below it.
func withinDir(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

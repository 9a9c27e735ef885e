// Package resolve computes, for every (consumer, dependency) edge of a
// workspace, the independent set of active options. Resolution is a pure
// function of the parsed configuration: no unification happens across
// consumers, so two consumers of one dependency never see each other's
// selections.
package resolve

import (
	"cmp"
	"slices"

	"github.com/jward/featurescope/internal/manifest"
)

// Key identifies one edge.
type Key struct {
	Consumer   manifest.PackageID
	Dependency manifest.PackageID
}

func compareKeys(a, b Key) int {
	if c := cmp.Compare(a.Consumer, b.Consumer); c != 0 {
		return c
	}
	return cmp.Compare(a.Dependency, b.Dependency)
}

// Edge is a resolved edge.
type Edge struct {
	Consumer   manifest.PackageID    `json:"consumer"`
	Dependency manifest.PackageID    `json:"dependency"`
	Active     []manifest.OptionName `json:"active"`
	// Defaults is true when the dependency's declared defaults are in effect
	// for this edge: there is no override, or the override keeps them.
	Defaults bool `json:"defaults"`
	// Overridden is true when an override block governs the edge.
	Overridden bool `json:"overridden"`
}

// Key returns the edge's key.
func (e Edge) Key() Key { return Key{e.Consumer, e.Dependency} }

// Input is everything resolution needs.
type Input struct {
	Declarations map[manifest.PackageID]*manifest.Declaration
	Overrides    []manifest.Override
	// Reach maps each consumer to the dependencies reachable from it. The
	// consumer itself is always considered reachable.
	Reach map[manifest.PackageID][]manifest.PackageID
}

// InputFromWorkspace builds an Input from a loaded workspace.
func InputFromWorkspace(ws *manifest.Workspace) Input {
	return Input{
		Declarations: ws.Declarations(),
		Overrides:    ws.Overrides(),
		Reach:        ws.Closures(),
	}
}

// Task is one validated edge waiting to be resolved.
type Task struct {
	Key
	Declaration *manifest.Declaration
	Override    *manifest.Override
}

// Resolve computes the active option set of the task's edge.
func (t Task) Resolve() Edge {
	e := Edge{Consumer: t.Consumer, Dependency: t.Dependency}

	var base []manifest.OptionName
	switch {
	case t.Override == nil:
		base = t.Declaration.Defaults
		e.Defaults = true
	default:
		e.Overridden = true
		e.Defaults = t.Override.IncludeDefaults
		if t.Override.IncludeDefaults {
			base = append(base, t.Declaration.Defaults...)
		}
		base = append(base, t.Override.Selected...)
	}
	e.Active = closeOver(base, t.Declaration.Implies)
	return e
}

// closeOver returns names plus everything they imply, sorted and unique.
func closeOver(names []manifest.OptionName, implies map[manifest.OptionName][]manifest.OptionName) []manifest.OptionName {
	seen := make(map[manifest.OptionName]bool, len(names))
	stack := slices.Clone(names)
	out := []manifest.OptionName{}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		stack = append(stack, implies[n]...)
	}
	slices.Sort(out)
	return out
}

// Tasks validates the input and lists every edge to resolve, sorted by key.
// Validation is fail-fast and visits overrides in key order, so the reported
// error is the same on every run.
func Tasks(in Input) ([]Task, error) {
	grouped := make(map[Key][]*manifest.Override)
	for i := range in.Overrides {
		o := &in.Overrides[i]
		k := Key{o.Consumer, o.Dependency}
		grouped[k] = append(grouped[k], o)
	}

	keys := make([]Key, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)

	chosen := make(map[Key]*manifest.Override, len(keys))
	for _, k := range keys {
		group := grouped[k]
		if len(group) > 1 {
			idx := make([]int, len(group))
			for i, o := range group {
				idx[i] = o.Index
			}
			return nil, &AmbiguousOverrideError{Consumer: k.Consumer, Dependency: k.Dependency, File: group[0].File, Indexes: idx}
		}
		o := group[0]
		decl, ok := in.Declarations[k.Dependency]
		if !ok {
			return nil, &UnknownPackageError{Consumer: k.Consumer, Dependency: k.Dependency, File: o.File}
		}
		for _, name := range o.Selected {
			if !decl.Has(name) {
				return nil, &UnknownOptionError{Consumer: k.Consumer, Dependency: k.Dependency, Option: name, File: o.File}
			}
		}
		chosen[k] = o
	}

	want := make(map[Key]bool)
	for consumer, deps := range in.Reach {
		for _, d := range append([]manifest.PackageID{consumer}, deps...) {
			if _, ok := in.Declarations[d]; ok {
				want[Key{consumer, d}] = true
			}
		}
	}
	for k := range chosen {
		want[k] = true
	}

	tasks := make([]Task, 0, len(want))
	for k := range want {
		tasks = append(tasks, Task{Key: k, Declaration: in.Declarations[k.Dependency], Override: chosen[k]})
	}
	slices.SortFunc(tasks, func(a, b Task) int { return compareKeys(a.Key, b.Key) })
	return tasks, nil
}

// Resolve validates the input and resolves every edge serially.
func Resolve(in Input) (*Resolution, error) {
	tasks, err := Tasks(in)
	if err != nil {
		return nil, err
	}
	edges := make([]Edge, len(tasks))
	for i, t := range tasks {
		edges[i] = t.Resolve()
	}
	return Collect(edges), nil
}

package manifest

import "slices"

// Graph maps each member to the workspace members it requires directly.
// Requirements on modules outside the workspace are dropped.
func (w *Workspace) Graph() map[PackageID][]PackageID {
	g := make(map[PackageID][]PackageID, len(w.Packages))
	for _, p := range w.Packages {
		var deps []PackageID
		for _, r := range p.Requires {
			if _, ok := w.byID[r]; ok && r != p.ID {
				deps = append(deps, r)
			}
		}
		g[p.ID] = deps
	}
	return g
}

// Closure returns every member reachable from id through require edges,
// excluding id itself, sorted. Cycles are tolerated.
func (w *Workspace) Closure(id PackageID) []PackageID {
	g := w.Graph()
	seen := map[PackageID]bool{id: true}
	stack := slices.Clone(g[id])
	var out []PackageID
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		stack = append(stack, g[n]...)
	}
	slices.Sort(out)
	return out
}

// Closures returns Closure for every member.
func (w *Workspace) Closures() map[PackageID][]PackageID {
	out := make(map[PackageID][]PackageID, len(w.Packages))
	for _, p := range w.Packages {
		out[p.ID] = w.Closure(p.ID)
	}
	return out
}

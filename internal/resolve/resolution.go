package resolve

import (
	"slices"

	"github.com/jward/featurescope/internal/manifest"
)

// Resolution is the read-only result of resolving a workspace.
type Resolution struct {
	// Edges are sorted by (consumer, dependency).
	Edges []Edge `json:"edges"`

	byKey map[Key]int
}

// Collect merges independently resolved edges into a Resolution. Input
// order does not matter.
func Collect(edges []Edge) *Resolution {
	sorted := slices.Clone(edges)
	slices.SortFunc(sorted, func(a, b Edge) int { return compareKeys(a.Key(), b.Key()) })
	r := &Resolution{Edges: sorted, byKey: make(map[Key]int, len(sorted))}
	for i, e := range sorted {
		r.byKey[e.Key()] = i
	}
	return r
}

// Edge looks up the resolved edge from consumer to dependency.
func (r *Resolution) Edge(consumer, dependency manifest.PackageID) (Edge, bool) {
	i, ok := r.byKey[Key{consumer, dependency}]
	if !ok {
		return Edge{}, false
	}
	return r.Edges[i], true
}

// From returns every edge whose consumer is consumer, sorted by dependency.
func (r *Resolution) From(consumer manifest.PackageID) []Edge {
	var out []Edge
	for _, e := range r.Edges {
		if e.Consumer == consumer {
			out = append(out, e)
		}
	}
	return out
}

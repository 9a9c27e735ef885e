package encode

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jward/featurescope/internal/manifest"
	"github.com/jward/featurescope/internal/resolve"
)

// ErrUnknownTarget is returned when the selected package is not a member.
var ErrUnknownTarget = errors.New("target is not a workspace member")

// Unit is one scoped compilation unit of a build: a declaring module and the
// edge that governs it.
type Unit struct {
	Package manifest.PackageID `json:"package"`
	Dir     string             `json:"dir"`
	Edge    resolve.Edge       `json:"edge"`
	Tokens  []Token            `json:"tokens"`
}

// Plan is the encoded input of one wrapped build.
type Plan struct {
	// Target is the top-level consumer, or "" for a whole-workspace build.
	Target      manifest.PackageID `json:"target,omitempty"`
	Units       []Unit             `json:"units"`
	Tokens      []Token            `json:"tokens"`
	Fingerprint string             `json:"fingerprint"`
}

// Unit returns the plan's unit for pkg.
func (p *Plan) Unit(pkg manifest.PackageID) (Unit, bool) {
	for _, u := range p.Units {
		if u.Package == pkg {
			return u, true
		}
	}
	return Unit{}, false
}

// Build selects the edges governing a build of target and encodes them.
// Every declaring module in target's closure (target included) is compiled
// under the edge from target, so overrides are re-resolved per top-level
// consumer. With an empty target every declaring member uses its self edge.
func Build(ws *manifest.Workspace, res *resolve.Resolution, target manifest.PackageID) (*Plan, error) {
	var edges []resolve.Edge
	if target == "" {
		for _, p := range ws.Packages {
			if e, ok := res.Edge(p.ID, p.ID); ok {
				edges = append(edges, e)
			}
		}
	} else {
		if _, ok := ws.Package(target); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
		}
		for _, dep := range append([]manifest.PackageID{target}, ws.Closure(target)...) {
			if e, ok := res.Edge(target, dep); ok {
				edges = append(edges, e)
			}
		}
	}

	encoded := Encode(edges)
	plan := &Plan{Target: target, Units: []Unit{}, Tokens: []Token{}}
	union := make(map[Token]bool)
	for _, e := range edges {
		pkg, _ := ws.Package(e.Dependency)
		toks := encoded[e.Dependency]
		if toks == nil {
			toks = []Token{}
		}
		plan.Units = append(plan.Units, Unit{Package: e.Dependency, Dir: pkg.Dir, Edge: e, Tokens: toks})
		for _, t := range toks {
			union[t] = true
		}
	}
	slices.SortFunc(plan.Units, func(a, b Unit) int { return strings.Compare(string(a.Package), string(b.Package)) })
	plan.Tokens = sortedTokens(union)
	plan.Fingerprint = Fingerprint(plan.Units)
	return plan, nil
}

// Fingerprint hashes the units' packages and tokens. Directories are left
// out so the value is stable across checkouts.
func Fingerprint(units []Unit) string {
	h := sha256.New()
	for _, u := range units {
		fmt.Fprintf(h, "unit:%s\n", u.Package)
		for _, t := range u.Tokens {
			fmt.Fprintf(h, "token:%s\n", t)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

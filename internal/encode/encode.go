// Package encode turns resolved edges into the compiler-visible tokens the
// toolexec shim reads back. A token is "<module path>:<option>"; module
// paths never contain ':' and option names are Go identifiers, so distinct
// (package, option) pairs always produce distinct tokens.
package encode

import (
	"slices"
	"strings"

	"github.com/jward/featurescope/internal/manifest"
	"github.com/jward/featurescope/internal/resolve"
)

// Token is the encoded form of one (package, option) pair.
type Token string

// TokenFor encodes name as declared by pkg.
func TokenFor(pkg manifest.PackageID, name manifest.OptionName) Token {
	return Token(string(pkg) + ":" + string(name))
}

// DefaultsToken marks that pkg's declared defaults are in effect.
func DefaultsToken(pkg manifest.PackageID) Token {
	return TokenFor(pkg, manifest.DefaultOption)
}

// Split decodes a token. ok is false for strings that are not tokens.
func (t Token) Split() (pkg manifest.PackageID, name manifest.OptionName, ok bool) {
	i := strings.LastIndexByte(string(t), ':')
	if i <= 0 || i == len(t)-1 {
		return "", "", false
	}
	return manifest.PackageID(t[:i]), manifest.OptionName(t[i+1:]), true
}

// Encode maps every edge onto the unit compiled for its dependency. Edges
// sharing a dependency contribute the union of their tokens. Token lists are
// sorted. No validation happens here.
func Encode(edges []resolve.Edge) map[manifest.PackageID][]Token {
	sets := make(map[manifest.PackageID]map[Token]bool)
	for _, e := range edges {
		set := sets[e.Dependency]
		if set == nil {
			set = make(map[Token]bool)
			sets[e.Dependency] = set
		}
		for _, name := range e.Active {
			set[TokenFor(e.Dependency, name)] = true
		}
		if e.Defaults {
			set[DefaultsToken(e.Dependency)] = true
		}
	}

	out := make(map[manifest.PackageID][]Token, len(sets))
	for pkg, set := range sets {
		out[pkg] = sortedTokens(set)
	}
	return out
}

func sortedTokens(set map[Token]bool) []Token {
	toks := make([]Token, 0, len(set))
	for t := range set {
		toks = append(toks, t)
	}
	slices.Sort(toks)
	return toks
}

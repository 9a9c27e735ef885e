package scope

import (
	"github.com/jward/featurescope/internal/encode"
	"github.com/jward/featurescope/internal/manifest"
)

// TokenEnv evaluates guards for one package against its encoded tokens.
type TokenEnv struct {
	Package manifest.PackageID
	active  map[manifest.OptionName]bool
}

// NewEnv keeps the tokens that belong to pkg and ignores the rest.
func NewEnv(pkg manifest.PackageID, tokens []encode.Token) *TokenEnv {
	env := &TokenEnv{Package: pkg, active: make(map[manifest.OptionName]bool)}
	for _, t := range tokens {
		if owner, name, ok := t.Split(); ok && owner == pkg {
			env.active[name] = true
		}
	}
	return env
}

// Active reports whether name is active. The reserved name "default" is
// active exactly when the defaults are in effect.
func (e *TokenEnv) Active(name manifest.OptionName) bool { return e.active[name] }

func (e *TokenEnv) UsingDefaults() bool { return e.active[manifest.DefaultOption] }

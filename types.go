package featurescope

import (
	"github.com/jward/featurescope/internal/encode"
	"github.com/jward/featurescope/internal/manifest"
	"github.com/jward/featurescope/internal/resolve"
	"github.com/jward/featurescope/internal/scope"
)

// Public aliases for the internal model types returned by the Engine API.

type PackageID = manifest.PackageID
type OptionName = manifest.OptionName
type Workspace = manifest.Workspace
type Package = manifest.Package
type Edge = resolve.Edge
type Resolution = resolve.Resolution
type Token = encode.Token
type Plan = encode.Plan
type Unit = encode.Unit
type Diagnostic = scope.Diagnostic

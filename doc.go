// Package featurescope resolves build-time options for the modules of a Go
// workspace per consumer, instead of unifying them across the whole build,
// and wraps the go command so each build compiles its dependencies with the
// options its top-level consumer selected.
//
// # Configuration
//
// Every workspace member may carry a featurescope.toml next to its go.mod:
//
//	[declare]
//	default = ["a"]
//	a = []
//	b = ["a"]   # enabling b also enables a
//
//	[[scope]]
//	package = "example.com/types"
//	features = ["b"]
//	default-features = false
//
// The [declare] table lists the options a module offers and its defaults.
// Each [[scope]] block overrides, for this module only, which options one of
// its dependencies is built with.
//
// # Pipeline
//
//  1. Load: parse go.work, every member go.mod and featurescope.toml.
//  2. Resolve: compute the active options of every (consumer, dependency)
//     edge. Edges are independent, so a worker pool resolves them.
//  3. Plan: select the edges that govern a build of one target and encode
//     them as "<module>:<option>" tokens with a fingerprint.
//  4. Build: run go with -toolexec pointing back at this binary, which
//     prunes annotated declarations before the compiler sees them.
//
// # Annotations
//
// Source files opt declarations in and out with directives:
//
//	//featurescope:if any(a, b)
//	func fast() {}
//
//	//featurescope:default
//	func portable() {}
//
// Guards combine option names with any(...), all(...), not(...) and
// only(...). A default directive also holds whenever the module's declared
// defaults are in effect.
//
// # Usage
//
//	e, err := featurescope.New(".", featurescope.WithCache(".featurescope/cache.db"))
//	if err != nil { ... }
//	defer e.Close()
//
//	plan, err := e.Plan(ctx, "example.com/app")
package featurescope

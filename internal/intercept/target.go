package intercept

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/featurescope/internal/encode"
	"github.com/jward/featurescope/internal/manifest"
)

// SelectTarget picks the top-level consumer of a build: the --package
// selection, else the member named or containing the first positional
// argument, else the member containing the working directory. An empty
// result means a whole-workspace build.
func SelectTarget(ws *manifest.Workspace, a Args, cwd string) (manifest.PackageID, error) {
	if a.Package != "" {
		id := manifest.PackageID(a.Package)
		if _, ok := ws.Package(id); !ok {
			return "", fmt.Errorf("%w: --package %s", encode.ErrUnknownTarget, a.Package)
		}
		return id, nil
	}

	base := cwd
	if dir := a.Dir(); dir != "" {
		if filepath.IsAbs(dir) {
			base = dir
		} else {
			base = filepath.Join(cwd, dir)
		}
	}

	if a.Positional != "" {
		if id, ok := targetForArg(ws, a.Positional, base); ok {
			return id, nil
		}
	}
	if p, ok := ws.PackageForDir(base); ok {
		return p.ID, nil
	}
	return "", nil
}

func targetForArg(ws *manifest.Workspace, arg, base string) (manifest.PackageID, bool) {
	pattern := strings.TrimSuffix(strings.TrimSuffix(arg, "..."), "/")

	// Import paths name their module directly.
	if !strings.HasPrefix(pattern, ".") && !filepath.IsAbs(pattern) {
		var best *manifest.Package
		for _, p := range ws.Packages {
			id := string(p.ID)
			if (pattern == id || strings.HasPrefix(pattern, id+"/")) && (best == nil || len(id) > len(best.ID)) {
				best = p
			}
		}
		if best != nil {
			return best.ID, true
		}
	}

	if pattern == "" {
		pattern = "."
	}
	path := pattern
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if !info.IsDir() {
		path = filepath.Dir(path)
	}
	if p, ok := ws.PackageForDir(path); ok {
		return p.ID, true
	}
	return "", false
}

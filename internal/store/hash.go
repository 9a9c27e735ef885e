package store

import (
	"crypto/sha256"
	"fmt"
	"os"
	"slices"
)

// InputHash computes the cache key for a plan: the paths and contents of
// every configuration file plus the build target. Any edit to go.work,
// a go.mod or a featurescope.toml changes the key.
func InputHash(files []string, target string) (string, error) {
	h := sha256.New()

	sorted := slices.Clone(files)
	slices.Sort(sorted)
	for _, path := range sorted {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("hash %s: %w", path, err)
		}
		fmt.Fprintf(h, "file:%s:%d\n", path, len(data))
		h.Write(data)
		h.Write([]byte{'\n'})
	}
	fmt.Fprintf(h, "target:%s\n", target)

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

package resolve

import (
	"errors"
	"fmt"

	"github.com/jward/featurescope/internal/manifest"
)

var (
	// ErrUnknownOption is wrapped by UnknownOptionError.
	ErrUnknownOption = errors.New("unknown option reference")
	// ErrAmbiguousOverride is wrapped by AmbiguousOverrideError.
	ErrAmbiguousOverride = errors.New("ambiguous override")
	// ErrUnknownPackage is wrapped by UnknownPackageError.
	ErrUnknownPackage = errors.New("unknown package reference")
)

// UnknownOptionError reports an override selecting an option its dependency
// never declared.
type UnknownOptionError struct {
	Consumer   manifest.PackageID
	Dependency manifest.PackageID
	Option     manifest.OptionName
	File       string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("%s: %s selects option %q of %s, which does not declare it",
		e.File, e.Consumer, e.Option, e.Dependency)
}

func (e *UnknownOptionError) Unwrap() error { return ErrUnknownOption }

// AmbiguousOverrideError reports two override blocks for one edge.
type AmbiguousOverrideError struct {
	Consumer   manifest.PackageID
	Dependency manifest.PackageID
	File       string
	Indexes    []int
}

func (e *AmbiguousOverrideError) Error() string {
	return fmt.Sprintf("%s: %s has %d scope blocks for %s (indexes %v), expected at most one",
		e.File, e.Consumer, len(e.Indexes), e.Dependency, e.Indexes)
}

func (e *AmbiguousOverrideError) Unwrap() error { return ErrAmbiguousOverride }

// UnknownPackageError reports an override naming a package that is not a
// declaring workspace member.
type UnknownPackageError struct {
	Consumer   manifest.PackageID
	Dependency manifest.PackageID
	File       string
}

func (e *UnknownPackageError) Error() string {
	return fmt.Sprintf("%s: %s overrides %s, which is not a workspace member with a [declare] table",
		e.File, e.Consumer, e.Dependency)
}

func (e *UnknownPackageError) Unwrap() error { return ErrUnknownPackage }

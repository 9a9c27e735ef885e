package intercept

import (
	"errors"
	"strconv"

	"github.com/jward/featurescope/internal/encode"
	"github.com/jward/featurescope/internal/manifest"
	"github.com/jward/featurescope/internal/resolve"
)

// ExitCode is the status the wrapper exits with.
type ExitCode int

const (
	ExitSuccess ExitCode = 0
	// ExitInternal covers failures that are neither configuration errors
	// nor the child's own status.
	ExitInternal ExitCode = 70
	// Configuration-stage failures, reported before any child is started.
	ExitConfigParse       ExitCode = 78
	ExitUnknownOption     ExitCode = 79
	ExitAmbiguousOverride ExitCode = 80
	ExitUnknownPackage    ExitCode = 81
	// ExitNotFound reports a child that could not be started.
	ExitNotFound ExitCode = 127
	// ExitSignalBase is added to the number of the signal that killed the child.
	ExitSignalBase ExitCode = 128
)

// IsSuccess reports whether c is zero.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// ConfigExitCode maps a configuration-stage error to its exit code.
func ConfigExitCode(err error) ExitCode {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, manifest.ErrConfigParse):
		return ExitConfigParse
	case errors.Is(err, resolve.ErrUnknownOption):
		return ExitUnknownOption
	case errors.Is(err, resolve.ErrAmbiguousOverride):
		return ExitAmbiguousOverride
	case errors.Is(err, resolve.ErrUnknownPackage), errors.Is(err, encode.ErrUnknownTarget):
		return ExitUnknownPackage
	default:
		return ExitInternal
	}
}

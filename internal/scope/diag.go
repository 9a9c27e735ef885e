package scope

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedDirective reports a directive that does not parse.
	ErrMalformedDirective = errors.New("malformed directive")
	// ErrDanglingDirective reports a directive with no declaration after it.
	ErrDanglingDirective = errors.New("dangling directive")
)

// Diagnostic is a positioned message in compiler format.
type Diagnostic struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Msg    string `json:"message"`
	Err    error  `json:"-"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Msg)
}

// Diagnostics collects every problem found in one or more files.
type Diagnostics []Diagnostic

func (ds Diagnostics) Error() string {
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

func (ds Diagnostics) Unwrap() []error {
	var errs []error
	for _, d := range ds {
		if d.Err != nil {
			errs = append(errs, d.Err)
		}
	}
	return errs
}

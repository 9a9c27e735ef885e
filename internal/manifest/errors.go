package manifest

import (
	"errors"
	"fmt"
)

// ErrConfigParse is the sentinel wrapped by ParseError.
var ErrConfigParse = errors.New("configuration parse error")

// ParseError reports malformed workspace, go.mod or featurescope.toml
// content. Line and Column are 1-based and zero when unknown.
type ParseError struct {
	File   string
	Line   int
	Column int
	Msg    string
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	loc := e.File
	switch {
	case e.Line > 0 && e.Column > 0:
		loc = fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
	case e.Line > 0:
		loc = fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", loc, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", loc, e.Msg)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfigParse}
	}
	return []error{ErrConfigParse, e.Err}
}

func parseErrorf(file string, format string, args ...any) *ParseError {
	return &ParseError{File: file, Msg: fmt.Sprintf(format, args...)}
}

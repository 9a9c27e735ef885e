package scope

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"slices"
	"strings"

	"github.com/jward/featurescope/internal/manifest"
)

// ErrOnlyViolation is wrapped by OnlyViolationError.
var ErrOnlyViolation = errors.New("only-constraint violation")

// Env answers guard queries for one compilation unit.
type Env interface {
	// Active reports whether the unit's own option name is active.
	Active(name manifest.OptionName) bool
	// UsingDefaults reports whether the unit's declared defaults are in effect.
	UsingDefaults() bool
}

// Expr is a guard expression.
type Expr interface {
	Eval(env Env) (bool, error)
	String() string
}

type (
	// Atom is true when its option is active.
	Atom struct{ Name manifest.OptionName }
	// Any is true when at least one argument is true.
	Any struct{ Args []Expr }
	// All is true when every argument is true, including when there are none.
	All struct{ Args []Expr }
	// Not inverts its argument.
	Not struct{ X Expr }
	// Only is true when exactly one name is active and fails when several are.
	Only struct{ Names []manifest.OptionName }
	// Defaults is true when the declaring package's defaults are in effect.
	Defaults struct{}
)

// OnlyViolationError reports an only(...) guard with several active options.
type OnlyViolationError struct {
	Names  []manifest.OptionName
	Active []manifest.OptionName
}

func (e *OnlyViolationError) Error() string {
	return fmt.Sprintf("%s: options %s are active at the same time, at most one is allowed",
		Only{Names: e.Names}, joinNames(e.Active))
}

func (e *OnlyViolationError) Unwrap() error { return ErrOnlyViolation }

func (a Atom) Eval(env Env) (bool, error) { return env.Active(a.Name), nil }
func (a Atom) String() string             { return string(a.Name) }

// Eval evaluates every argument so a violation nested in a later argument
// is still reported.
func (a Any) Eval(env Env) (bool, error) {
	result := false
	for _, x := range a.Args {
		v, err := x.Eval(env)
		if err != nil {
			return false, err
		}
		result = result || v
	}
	return result, nil
}

func (a Any) String() string { return call("any", a.Args) }

func (a All) Eval(env Env) (bool, error) {
	result := true
	for _, x := range a.Args {
		v, err := x.Eval(env)
		if err != nil {
			return false, err
		}
		result = result && v
	}
	return result, nil
}

func (a All) String() string { return call("all", a.Args) }

func (n Not) Eval(env Env) (bool, error) {
	v, err := n.X.Eval(env)
	return !v, err
}

func (n Not) String() string { return "not(" + n.X.String() + ")" }

func (o Only) Eval(env Env) (bool, error) {
	var active []manifest.OptionName
	for _, name := range o.Names {
		if env.Active(name) {
			active = append(active, name)
		}
	}
	if len(active) > 1 {
		return false, &OnlyViolationError{Names: o.Names, Active: active}
	}
	return len(active) == 1, nil
}

func (o Only) String() string { return "only(" + joinNames(o.Names) + ")" }

func (Defaults) Eval(env Env) (bool, error) { return env.UsingDefaults(), nil }
func (Defaults) String() string             { return "default" }

// ParseExpr parses a guard written in Go call syntax:
//
//	a | default | any(x, ...) | all(x, ...) | not(x) | only(a, b, ...)
//
// default is a Go keyword, so it is masked with a same-length identifier
// before parsing and recognized again by offset.
func ParseExpr(src string) (Expr, error) {
	masked, keywords := maskDefault(src)
	fset := token.NewFileSet()
	node, err := parser.ParseExprFrom(fset, "", masked, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", src, err)
	}
	c := &converter{fset: fset, keywords: keywords}
	return c.convert(node)
}

// defaultMask replaces the default keyword; it has the keyword's length so
// error columns still match the directive text.
const defaultMask = "dEfAuLt"

func maskDefault(src string) ([]byte, map[int]bool) {
	buf := []byte(src)
	if !strings.Contains(src, "default") {
		return buf, nil
	}
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(buf))
	var s scanner.Scanner
	s.Init(file, []byte(src), nil, 0)

	keywords := make(map[int]bool)
	for {
		pos, tok, _ := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok == token.DEFAULT {
			off := file.Offset(pos)
			copy(buf[off:], defaultMask)
			keywords[off] = true
		}
	}
	return buf, keywords
}

type converter struct {
	fset     *token.FileSet
	keywords map[int]bool
}

func (c *converter) isDefault(id *ast.Ident) bool {
	return c.keywords[c.fset.Position(id.Pos()).Offset]
}

func (c *converter) convert(node ast.Expr) (Expr, error) {
	switch n := node.(type) {
	case *ast.Ident:
		if c.isDefault(n) {
			return Defaults{}, nil
		}
		return Atom{Name: manifest.OptionName(n.Name)}, nil
	case *ast.ParenExpr:
		return c.convert(n.X)
	case *ast.CallExpr:
		fn, ok := n.Fun.(*ast.Ident)
		if !ok || n.Ellipsis.IsValid() || c.isDefault(fn) {
			return nil, fmt.Errorf("unsupported call %s", exprText(n))
		}
		switch fn.Name {
		case "any", "all":
			args, err := c.convertAll(n.Args)
			if err != nil {
				return nil, err
			}
			if fn.Name == "any" {
				return Any{Args: args}, nil
			}
			return All{Args: args}, nil
		case "not":
			if len(n.Args) != 1 {
				return nil, fmt.Errorf("not() takes exactly one argument, got %d", len(n.Args))
			}
			x, err := c.convert(n.Args[0])
			if err != nil {
				return nil, err
			}
			return Not{X: x}, nil
		case "only":
			names := make([]manifest.OptionName, 0, len(n.Args))
			for _, arg := range n.Args {
				id, ok := arg.(*ast.Ident)
				if !ok || c.isDefault(id) {
					return nil, fmt.Errorf("only() takes option names, got %s", exprText(arg))
				}
				// A repeated name is one option, not two active ones.
				if name := manifest.OptionName(id.Name); !slices.Contains(names, name) {
					names = append(names, name)
				}
			}
			return Only{Names: names}, nil
		default:
			return nil, fmt.Errorf("unknown combinator %q (want any, all, not or only)", fn.Name)
		}
	default:
		return nil, fmt.Errorf("unsupported expression %s", exprText(node))
	}
}

func (c *converter) convertAll(nodes []ast.Expr) ([]Expr, error) {
	out := make([]Expr, 0, len(nodes))
	for _, n := range nodes {
		x, err := c.convert(n)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func exprText(n ast.Node) string {
	return fmt.Sprintf("%T", n)
}

func call(name string, args []Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func joinNames(names []manifest.OptionName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

// Names lists the option names x refers to, in order of appearance. The
// defaults test contributes nothing.
func Names(x Expr) []manifest.OptionName {
	var out []manifest.OptionName
	var walk func(Expr)
	walk = func(x Expr) {
		switch n := x.(type) {
		case Atom:
			out = append(out, n.Name)
		case Any:
			for _, a := range n.Args {
				walk(a)
			}
		case All:
			for _, a := range n.Args {
				walk(a)
			}
		case Not:
			walk(n.X)
		case Only:
			out = append(out, n.Names...)
		}
	}
	walk(x)
	return out
}

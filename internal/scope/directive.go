package scope

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/featurescope/internal/syntax"
)

// Prefix starts every directive comment.
const Prefix = "//featurescope:"

// Verb selects how a directive's expression is read.
type Verb string

const (
	// VerbIf keeps the item when the expression holds.
	VerbIf Verb = "if"
	// VerbDefault keeps the item when the expression holds or when the
	// package's defaults are in effect. Without an expression it tests the
	// defaults alone.
	VerbDefault Verb = "default"
)

// Directive is one parsed directive comment.
type Directive struct {
	Verb Verb
	Expr Expr
	Text string

	Start, End   uint32
	Line, Column int
}

// Item is a top-level declaration carrying one or more directives.
type Item struct {
	Name       string
	Directives []Directive

	// Start is the first directive's offset, End the declaration's end.
	Start, End uint32
	DeclLine   int
}

// Guard combines the item's directives. Several directives must all hold.
func (it Item) Guard() Expr {
	if len(it.Directives) == 1 {
		return it.Directives[0].Expr
	}
	args := make([]Expr, len(it.Directives))
	for i, d := range it.Directives {
		args[i] = d.Expr
	}
	return All{Args: args}
}

// HasDirectives is a cheap pre-check that avoids parsing files with no
// directive text at all.
func HasDirectives(src []byte) bool {
	return bytes.Contains(src, []byte(Prefix))
}

// Scan locates annotated top-level declarations in src. Malformed and
// dangling directives are reported together as Diagnostics. Files the
// grammar cannot parse cleanly are returned without items so the compiler
// reports the syntax error itself.
func Scan(ctx context.Context, file string, src []byte) ([]Item, error) {
	if !HasDirectives(src) {
		return nil, nil
	}
	tree, err := syntax.ParseGo(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	defer tree.Close()
	root := tree.RootNode()
	if root.HasError() {
		return nil, nil
	}

	var (
		items   []Item
		pending []Directive
		diags   Diagnostics
	)
	flushDangling := func(reason string) {
		for _, d := range pending {
			diags = append(diags, Diagnostic{
				File: file, Line: d.Line, Column: d.Column,
				Msg: fmt.Sprintf("misplaced %s%s directive: %s", Prefix[2:], d.Verb, reason),
				Err: ErrDanglingDirective,
			})
		}
		pending = nil
	}

	for _, n := range syntax.TopLevel(root) {
		switch {
		case n.Type() == "comment":
			text := n.Content(src)
			if !strings.HasPrefix(text, Prefix) || n.StartPoint().Column != 0 {
				continue
			}
			d, err := parseDirective(n, text)
			if err != nil {
				diags = append(diags, Diagnostic{
					File: file, Line: d.Line, Column: d.Column, Msg: err.Error(), Err: ErrMalformedDirective,
				})
				continue
			}
			pending = append(pending, d)
		case syntax.IsDeclaration(n):
			if len(pending) == 0 {
				continue
			}
			items = append(items, Item{
				Name:       syntax.DeclName(n, src),
				Directives: pending,
				Start:      pending[0].Start,
				End:        n.EndByte(),
				DeclLine:   int(n.StartPoint().Row) + 1,
			})
			pending = nil
		default:
			flushDangling("not followed by a declaration")
		}
	}
	flushDangling("no declaration follows")

	if len(diags) > 0 {
		return nil, diags
	}
	return items, nil
}

func parseDirective(n *sitter.Node, text string) (Directive, error) {
	d := Directive{
		Text:   text,
		Start:  n.StartByte(),
		End:    n.EndByte(),
		Line:   int(n.StartPoint().Row) + 1,
		Column: int(n.StartPoint().Column) + 1,
	}
	body := strings.TrimPrefix(text, Prefix)
	verb, rest := body, ""
	if i := strings.IndexAny(body, " \t"); i >= 0 {
		verb, rest = body[:i], strings.TrimSpace(body[i+1:])
	}
	d.Verb = Verb(verb)

	switch d.Verb {
	case VerbIf:
		if rest == "" {
			return d, fmt.Errorf("%sif requires an expression", Prefix[2:])
		}
		x, err := ParseExpr(rest)
		if err != nil {
			return d, err
		}
		d.Expr = x
	case VerbDefault:
		if rest == "" {
			d.Expr = Defaults{}
			break
		}
		x, err := ParseExpr(rest)
		if err != nil {
			return d, err
		}
		d.Expr = Any{Args: []Expr{x, Defaults{}}}
	default:
		return d, fmt.Errorf("unknown directive %s%s (want if or default)", Prefix[2:], verb)
	}
	return d, nil
}

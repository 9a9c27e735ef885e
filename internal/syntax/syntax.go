// Package syntax wraps the tree-sitter Go grammar used to locate annotated
// declarations in source files.
package syntax

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// goGrammar is initialized on first use.
var (
	goGrammar   *sitter.Language
	grammarOnce sync.Once
)

func grammar() *sitter.Language {
	grammarOnce.Do(func() {
		goGrammar = golang.GetLanguage()
	})
	return goGrammar
}

// IsGoFile reports whether path names a Go source file.
func IsGoFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".go")
}

// ParseGo parses src with a fresh parser. Parsers are not safe for
// concurrent use, so none is shared. The caller closes the returned tree.
func ParseGo(ctx context.Context, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return tree, nil
}

// TopLevel returns the named children of a source_file node in order.
func TopLevel(root *sitter.Node) []*sitter.Node {
	n := int(root.NamedChildCount())
	out := make([]*sitter.Node, 0, n)
	for i := range n {
		out = append(out, root.NamedChild(i))
	}
	return out
}

// Declaration node types that may carry an annotation.
var declarationTypes = map[string]bool{
	"function_declaration": true,
	"method_declaration":   true,
	"type_declaration":     true,
	"var_declaration":      true,
	"const_declaration":    true,
	"import_declaration":   true,
}

// IsDeclaration reports whether n is an annotatable top-level declaration.
func IsDeclaration(n *sitter.Node) bool {
	return declarationTypes[n.Type()]
}

// DeclName returns a short human-readable name for a declaration node, such
// as "func Name", "method (T).Name" or "type T". It falls back to the node
// type when nothing better is available.
func DeclName(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case "function_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			return "func " + name.Content(src)
		}
	case "method_declaration":
		name := n.ChildByFieldName("name")
		recv := n.ChildByFieldName("receiver")
		if name != nil && recv != nil {
			return "method " + recv.Content(src) + "." + name.Content(src)
		}
	case "type_declaration", "var_declaration", "const_declaration":
		kw := strings.TrimSuffix(n.Type(), "_declaration")
		if n.NamedChildCount() > 0 {
			spec := n.NamedChild(0)
			if name := spec.ChildByFieldName("name"); name != nil {
				return kw + " " + name.Content(src)
			}
			if spec.NamedChildCount() > 0 {
				return kw + " " + spec.NamedChild(0).Content(src)
			}
		}
		return kw
	case "import_declaration":
		return "import"
	}
	return n.Type()
}

package featurescope

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jward/featurescope/internal/scope"
)

// ExplainedItem is the decision for one annotated declaration.
type ExplainedItem struct {
	Name  string `json:"name"`
	Line  int    `json:"line"`
	Guard string `json:"guard"`
	Keep  bool   `json:"keep"`
}

// Explanation shows how one source file is compiled in a build of Target.
type Explanation struct {
	File    string          `json:"file"`
	Package PackageID       `json:"package"`
	Target  PackageID       `json:"target,omitempty"`
	Scoped  bool            `json:"scoped"`
	Tokens  []Token         `json:"tokens"`
	Items   []ExplainedItem `json:"items"`
}

// Explain evaluates every annotated declaration of file under the plan for
// target. Files of modules outside the plan are compiled unchanged, so all
// their items are reported as kept.
func (e *Engine) Explain(ctx context.Context, file string, target PackageID) (*Explanation, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	pkg, ok := e.ws.PackageForDir(filepath.Dir(abs))
	if !ok {
		return nil, fmt.Errorf("%s is not inside a workspace member", abs)
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	plan, err := e.Plan(ctx, target)
	if err != nil {
		return nil, err
	}
	unit, scoped := plan.Unit(pkg.ID)

	ex := &Explanation{
		File:    abs,
		Package: pkg.ID,
		Target:  target,
		Scoped:  scoped,
		Tokens:  []Token{},
		Items:   []ExplainedItem{},
	}
	if scoped {
		ex.Tokens = unit.Tokens
	}

	items, err := scope.Scan(ctx, abs, src)
	if err != nil {
		return nil, err
	}
	keep := make([]bool, len(items))
	for i := range keep {
		keep[i] = true
	}
	if scoped {
		decisions, err := scope.Evaluate(abs, items, scope.NewEnv(pkg.ID, unit.Tokens))
		if err != nil {
			return nil, err
		}
		for i, d := range decisions {
			keep[i] = d.Keep
		}
	}
	for i, it := range items {
		ex.Items = append(ex.Items, ExplainedItem{
			Name:  it.Name,
			Line:  it.DeclLine,
			Guard: it.Guard().String(),
			Keep:  keep[i],
		})
	}
	return ex, nil
}

package scope

import (
	"context"
	"fmt"
)

// Decision is the evaluated outcome for one annotated item.
type Decision struct {
	Item Item
	Keep bool
}

// Evaluate decides every item. All guards are evaluated even after a
// failure so one run reports every only() violation in the file.
func Evaluate(file string, items []Item, env Env) ([]Decision, error) {
	decisions := make([]Decision, 0, len(items))
	var diags Diagnostics
	for _, it := range items {
		keep, err := it.Guard().Eval(env)
		if err != nil {
			first := it.Directives[0]
			diags = append(diags, Diagnostic{
				File: file, Line: first.Line, Column: first.Column,
				Msg: fmt.Sprintf("%s: %v", it.Name, err),
				Err: err,
			})
			continue
		}
		decisions = append(decisions, Decision{Item: it, Keep: keep})
	}
	if len(diags) > 0 {
		return nil, diags
	}
	return decisions, nil
}

// Apply returns a copy of src with removed items blanked from their first
// directive to the end of the declaration, and with the directives of kept
// items blanked. Newlines survive so every remaining byte keeps its line and
// column.
func Apply(src []byte, decisions []Decision) []byte {
	out := make([]byte, len(src))
	copy(out, src)
	for _, d := range decisions {
		if !d.Keep {
			blank(out, d.Item.Start, d.Item.End)
			continue
		}
		for _, dir := range d.Item.Directives {
			blank(out, dir.Start, dir.End)
		}
	}
	return out
}

func blank(buf []byte, start, end uint32) {
	for i := start; i < end && int(i) < len(buf); i++ {
		if buf[i] != '\n' {
			buf[i] = ' '
		}
	}
}

// Prune scans, evaluates and rewrites one file. changed is false when the
// file carries no directives, in which case src is returned as is.
func Prune(ctx context.Context, file string, src []byte, env Env) (out []byte, changed bool, err error) {
	items, err := Scan(ctx, file, src)
	if err != nil {
		return nil, false, err
	}
	if len(items) == 0 {
		return src, false, nil
	}
	decisions, err := Evaluate(file, items, env)
	if err != nil {
		return nil, false, err
	}
	return Apply(src, decisions), true, nil
}

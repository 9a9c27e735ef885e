package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/jward/featurescope"
)

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	if slices.Contains(validFormats, format) {
		return nil
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

func outputResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format. In JSON mode the
// error goes to w as a CLIResult envelope; in text mode it goes to errw.
func outputError(w, errw io.Writer, command string, err error) {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(errw, "Error: %s\n", err)
		return
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
}

func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case *featurescope.Plan:
		formatPlanText(w, v)
	case *featurescope.Report:
		formatReportText(w, v)
	case *featurescope.Explanation:
		formatExplanationText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

func formatPlanText(w io.Writer, p *featurescope.Plan) {
	target := string(p.Target)
	if target == "" {
		target = "(workspace)"
	}
	fmt.Fprintf(w, "target:      %s\n", target)
	fmt.Fprintf(w, "fingerprint: %s\n\n", p.Fingerprint)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tVIA\tDEFAULTS\tOVERRIDDEN\tACTIVE")
	for _, u := range p.Units {
		active := make([]string, len(u.Edge.Active))
		for i, a := range u.Edge.Active {
			active[i] = string(a)
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\n",
			u.Package, u.Edge.Consumer, u.Edge.Defaults, u.Edge.Overridden, strings.Join(active, ","))
	}
	tw.Flush()
}

func formatReportText(w io.Writer, r *featurescope.Report) {
	for _, d := range r.Diagnostics {
		fmt.Fprintln(w, d.String())
	}
	status := "ok"
	if !r.OK() {
		status = fmt.Sprintf("%d problem(s)", len(r.Diagnostics))
	}
	fmt.Fprintf(w, "%s: %d members, %d edges, %d files, %d annotated items\n",
		status, r.Members, r.Edges, r.Files, r.Items)
}

func formatExplanationText(w io.Writer, ex *featurescope.Explanation) {
	fmt.Fprintf(w, "%s (%s)\n", ex.File, ex.Package)
	if !ex.Scoped {
		fmt.Fprintln(w, "not part of the build plan: compiled unchanged")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tITEM\tGUARD\tRESULT")
	for _, it := range ex.Items {
		result := "drop"
		if it.Keep {
			result = "keep"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", it.Line, it.Name, it.Guard, result)
	}
	tw.Flush()
}

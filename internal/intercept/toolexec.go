package intercept

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jward/featurescope/internal/encode"
)

// ToolexecWords builds the command the go command runs in front of every
// tool: the wrapper's hidden toolexec subcommand with the plan's units,
// tokens and fingerprint, plus an optional user toolexec to chain.
func ToolexecWords(self string, plan *encode.Plan, chain string) []string {
	words := []string{self, "toolexec"}
	for _, u := range plan.Units {
		words = append(words, "--scope", string(u.Package)+"="+u.Dir)
	}
	for _, t := range plan.Tokens {
		words = append(words, "--token", string(t))
	}
	words = append(words, "--fingerprint", plan.Fingerprint)
	if chain != "" {
		words = append(words, "--chain", chain)
	}
	return append(words, "--")
}

// JoinQuoted joins words so the go command's quoted field splitting gives
// them back unchanged.
func JoinQuoted(words []string) (string, error) {
	quoted := make([]string, len(words))
	for i, w := range words {
		q, err := quoteWord(w)
		if err != nil {
			return "", err
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " "), nil
}

func quoteWord(w string) (string, error) {
	if w != "" && !strings.ContainsAny(w, " \t\n\r'\"") {
		return w, nil
	}
	switch {
	case !strings.Contains(w, "'"):
		return "'" + w + "'", nil
	case !strings.Contains(w, `"`):
		return `"` + w + `"`, nil
	default:
		return "", fmt.Errorf("cannot quote %q: contains both quote characters", w)
	}
}

// Command assembles the child argv. Build verbs get -toolexec injected
// right after the verb; every other command line is forwarded unchanged.
func Command(goBin string, a Args, toolexec string) []string {
	argv := append([]string{goBin}, a.Global...)
	if a.Verb != "" {
		argv = append(argv, a.Verb)
	}
	if toolexec != "" && IsBuildVerb(a.Verb) {
		argv = append(argv, "-toolexec="+toolexec)
	}
	return append(argv, slices.Clone(a.Rest)...)
}

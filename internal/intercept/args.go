// Package intercept turns a go command line into the single child process
// that runs it with the resolved build options injected.
package intercept

import (
	"fmt"
	"slices"
	"strings"
)

// BuildVerbs are the go subcommands that accept -toolexec.
var BuildVerbs = []string{"build", "install", "run", "test", "vet"}

// IsBuildVerb reports whether verb receives the injected -toolexec flag.
func IsBuildVerb(verb string) bool {
	return slices.Contains(BuildVerbs, verb)
}

// Args is a go command line split around the verb, with the wrapper's own
// flags removed.
type Args struct {
	// Global holds flags that precede the verb, such as -C dir.
	Global []string
	Verb   string
	// Rest is everything after the verb that is forwarded to go.
	Rest []string

	// Package selects the unit, from --package.
	Package string
	// Workspace overrides the workspace root, from --workspace.
	Workspace string
	// Toolexec is a user-supplied -toolexec, removed from Rest for build
	// verbs so it can be chained behind the shim.
	Toolexec string
	// Positional is the first non-flag argument after the verb.
	Positional string
}

// Dir returns the directory given with -C, if any.
func (a Args) Dir() string {
	for i := 0; i < len(a.Global); i++ {
		switch g := a.Global[i]; {
		case g == "-C" || g == "--C":
			if i+1 < len(a.Global) {
				return a.Global[i+1]
			}
		case strings.HasPrefix(g, "-C="), strings.HasPrefix(g, "--C="):
			_, v, _ := strings.Cut(g, "=")
			return v
		}
	}
	return ""
}

// goValueFlags are go command flags whose value may be the next argument.
var goValueFlags = map[string]bool{
	"C": true, "o": true, "p": true, "tags": true, "ldflags": true,
	"gcflags": true, "asmflags": true, "gccgoflags": true, "mod": true,
	"modfile": true, "overlay": true, "pkgdir": true, "pgo": true,
	"buildmode": true, "compiler": true, "installsuffix": true,
	"covermode": true, "coverpkg": true, "coverprofile": true, "exec": true,
	"run": true, "skip": true, "bench": true, "benchtime": true, "count": true,
	"timeout": true, "cpu": true, "parallel": true, "vettool": true,
	"fuzz": true, "fuzztime": true, "fuzzminimizetime": true, "outputdir": true,
	"cpuprofile": true, "memprofile": true, "blockprofile": true,
	"mutexprofile": true, "trace": true, "shuffle": true,
	"toolexec": true, "reldir": true,
}

// wrapperFlags are consumed by the wrapper and never reach go.
var wrapperFlags = map[string]bool{"package": true, "workspace": true}

// splitFlag decodes -name, --name, -name=value and --name=value.
func splitFlag(arg string) (name, value string, hasValue, ok bool) {
	if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
		return "", "", false, false
	}
	body := strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
	name, value, hasValue = strings.Cut(body, "=")
	return name, value, hasValue, name != ""
}

// ParseArgs splits raw, strips the wrapper's flags and, for build verbs,
// lifts out any user -toolexec. Flag scanning stops at the first positional
// argument except for test, whose flags may follow the package list.
// Everything after a bare "--" or -args is left alone.
func ParseArgs(raw []string) (Args, error) {
	var a Args
	i := 0

	// Flags before the verb.
	for i < len(raw) {
		name, value, hasValue, ok := splitFlag(raw[i])
		if !ok {
			break
		}
		taken, err := a.takeWrapper(name, value, hasValue, raw, &i)
		if err != nil {
			return Args{}, err
		}
		if !taken {
			a.Global = append(a.Global, raw[i])
			if !hasValue && goValueFlags[name] && i+1 < len(raw) {
				i++
				a.Global = append(a.Global, raw[i])
			}
		}
		i++
	}
	if i < len(raw) && raw[i] != "--" {
		a.Verb = raw[i]
		i++
	}

	build := IsBuildVerb(a.Verb)
	scanning := true
	for ; i < len(raw); i++ {
		arg := raw[i]
		if !scanning || arg == "--" || arg == "-args" || arg == "--args" {
			a.Rest = append(a.Rest, raw[i:]...)
			break
		}
		name, value, hasValue, ok := splitFlag(arg)
		if !ok {
			if a.Positional == "" {
				a.Positional = arg
			}
			a.Rest = append(a.Rest, arg)
			if a.Verb != "test" {
				scanning = false
			}
			continue
		}
		taken, err := a.takeWrapper(name, value, hasValue, raw, &i)
		if err != nil {
			return Args{}, err
		}
		if taken {
			continue
		}
		if build && name == "toolexec" {
			if !hasValue {
				if i+1 >= len(raw) {
					return Args{}, fmt.Errorf("flag needs an argument: %s", arg)
				}
				i++
				value = raw[i]
			}
			a.Toolexec = value
			continue
		}
		a.Rest = append(a.Rest, arg)
		if !hasValue && goValueFlags[name] && i+1 < len(raw) {
			i++
			a.Rest = append(a.Rest, raw[i])
		}
	}
	return a, nil
}

func (a *Args) takeWrapper(name, value string, hasValue bool, raw []string, i *int) (bool, error) {
	if !wrapperFlags[name] || !strings.HasPrefix(raw[*i], "--") {
		return false, nil
	}
	if !hasValue {
		if *i+1 >= len(raw) {
			return false, fmt.Errorf("flag needs an argument: --%s", name)
		}
		*i++
		value = raw[*i]
	}
	switch name {
	case "package":
		a.Package = value
	case "workspace":
		a.Workspace = value
	}
	return true, nil
}

package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/featurescope/internal/manifest"
)

// mapEnv is an Env backed by a set of active names.
type mapEnv struct {
	active   map[manifest.OptionName]bool
	defaults bool
}

func envOf(defaults bool, names ...manifest.OptionName) mapEnv {
	e := mapEnv{active: make(map[manifest.OptionName]bool), defaults: defaults}
	for _, n := range names {
		e.active[n] = true
	}
	return e
}

func (e mapEnv) Active(name manifest.OptionName) bool { return e.active[name] }
func (e mapEnv) UsingDefaults() bool                  { return e.defaults }

func TestParseExpr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  string
		want string
	}{
		{"a", "a"},
		{"(a)", "a"},
		{"any(a, b)", "any(a, b)"},
		{"all()", "all()"},
		{"not(any(a, all(b, c)))", "not(any(a, all(b, c)))"},
		{"only(a, b, c)", "only(a, b, c)"},
		{"only(a, b, a)", "only(a, b)"},
		{"default", "default"},
		{"not(default)", "not(default)"},
		{"any(a, default)", "any(a, default)"},
		{"all(defaults, (default))", "all(defaults, default)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			x, err := ParseExpr(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, x.String())
		})
	}
}

func TestParseExpr_Errors(t *testing.T) {
	t.Parallel()
	for _, src := range []string{
		"",
		"a + b",
		"foo(a)",
		"not(a, b)",
		"not()",
		"only(any(a))",
		"x.y(a)",
		"any(a...)",
		`"a"`,
		"default(a)",
		"only(a, default)",
		"a.default",
	} {
		_, err := ParseExpr(src)
		assert.Error(t, err, src)
	}
}

func eval(t *testing.T, src string, env Env) (bool, error) {
	t.Helper()
	x, err := ParseExpr(src)
	require.NoError(t, err)
	return x.Eval(env)
}

func TestEval_Combinators(t *testing.T) {
	t.Parallel()
	env := envOf(false, "a", "c")
	tests := []struct {
		src  string
		want bool
	}{
		{"a", true},
		{"b", false},
		{"any(a, b)", true},
		{"any(b)", false},
		{"any()", false},
		{"all(a, c)", true},
		{"all(a, b)", false},
		{"all()", true},
		{"not(b)", true},
		{"not(any(a, b))", false},
	}
	for _, tt := range tests {
		got, err := eval(t, tt.src, env)
		require.NoError(t, err, tt.src)
		assert.Equal(t, tt.want, got, tt.src)
	}
}

func TestEval_Only(t *testing.T) {
	t.Parallel()

	got, err := eval(t, "only(a, b, c)", envOf(false))
	require.NoError(t, err)
	assert.False(t, got, "no option active")

	got, err = eval(t, "only(a, b, c)", envOf(false, "b"))
	require.NoError(t, err)
	assert.True(t, got, "exactly one option active")

	_, err = eval(t, "only(a, b, c)", envOf(false, "a", "c"))
	require.ErrorIs(t, err, ErrOnlyViolation)
	var v *OnlyViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, []manifest.OptionName{"a", "c"}, v.Active)
	assert.Contains(t, err.Error(), "a, c")
}

func TestEval_OnlyRepeatedName(t *testing.T) {
	t.Parallel()
	got, err := eval(t, "only(a, a)", envOf(false, "a"))
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEval_NoShortCircuit(t *testing.T) {
	t.Parallel()
	env := envOf(false, "a", "b", "c")

	_, err := eval(t, "any(a, only(b, c))", env)
	assert.ErrorIs(t, err, ErrOnlyViolation)

	_, err = eval(t, "all(not(a), only(b, c))", env)
	assert.ErrorIs(t, err, ErrOnlyViolation)
}

func TestEval_Defaults(t *testing.T) {
	t.Parallel()
	x := Any{Args: []Expr{Atom{Name: "b"}, Defaults{}}}

	got, err := x.Eval(envOf(true))
	require.NoError(t, err)
	assert.True(t, got)

	got, err = x.Eval(envOf(false, "b"))
	require.NoError(t, err)
	assert.True(t, got)

	got, err = x.Eval(envOf(false, "a"))
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEval_DefaultAtom(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src      string
		defaults bool
		want     bool
	}{
		{"default", true, true},
		{"default", false, false},
		{"not(default)", false, true},
		{"any(b, default)", false, false},
		{"any(b, default)", true, true},
	}
	for _, tt := range tests {
		got, err := eval(t, tt.src, envOf(tt.defaults))
		require.NoError(t, err, tt.src)
		assert.Equal(t, tt.want, got, "%s defaults=%t", tt.src, tt.defaults)
	}
}

func TestParseExpr_RoundTripsGuardText(t *testing.T) {
	t.Parallel()
	guard := All{Args: []Expr{Atom{Name: "a"}, Any{Args: []Expr{Atom{Name: "b"}, Defaults{}}}}}
	x, err := ParseExpr(guard.String())
	require.NoError(t, err)
	assert.Equal(t, guard, x)
}

func TestNames(t *testing.T) {
	t.Parallel()
	x, err := ParseExpr("all(a, not(b), only(c, d), any())")
	require.NoError(t, err)
	assert.Equal(t, []manifest.OptionName{"a", "b", "c", "d"}, Names(x))
	assert.Empty(t, Names(Any{Args: []Expr{Defaults{}}}))
}

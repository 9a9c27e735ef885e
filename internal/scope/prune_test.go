package scope

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/featurescope/internal/encode"
)

const typesPkg = "example.com/types"

func readTypes(t *testing.T) (string, []byte) {
	t.Helper()
	path := filepath.Join("..", "..", "testdata", "workspace", "types", "types.go")
	src, err := os.ReadFile(path)
	require.NoError(t, err)
	return path, src
}

func TestScan_Items(t *testing.T) {
	t.Parallel()
	path, src := readTypes(t)

	items, err := Scan(context.Background(), path, src)
	require.NoError(t, err)
	require.Len(t, items, 4)
	for _, it := range items {
		assert.Equal(t, "func init", it.Name)
		require.Len(t, it.Directives, 1)
	}
	assert.Equal(t, "a", items[0].Guard().String())
	assert.Equal(t, VerbDefault, items[2].Directives[0].Verb)
	assert.Equal(t, "default", items[2].Guard().String())
	assert.Equal(t, 6, items[0].Directives[0].Line)
	assert.Equal(t, 7, items[0].DeclLine)
}

func TestScan_NoDirectives(t *testing.T) {
	t.Parallel()
	items, err := Scan(context.Background(), "x.go", []byte("package x\n\nfunc F() {}\n"))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestScan_DocCommentsAndStacking(t *testing.T) {
	t.Parallel()
	src := []byte(`package x

//featurescope:if a
// F does things.
//featurescope:default b
// More docs.
func F() {}

	//featurescope:if z
type T int
`)
	items, err := Scan(context.Background(), "x.go", src)
	require.NoError(t, err)
	require.Len(t, items, 1, "indented directives are ignored")
	assert.Equal(t, "func F", items[0].Name)
	assert.Equal(t, "all(a, any(b, default))", items[0].Guard().String())
}

func TestScan_Diagnostics(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		want error
		pos  string
	}{
		{
			name: "dangling at end of file",
			src:  "package x\n\nfunc F() {}\n\n//featurescope:if a\n",
			want: ErrDanglingDirective,
			pos:  "x.go:5:1:",
		},
		{
			name: "before package clause",
			src:  "//featurescope:if a\npackage x\n",
			want: ErrDanglingDirective,
			pos:  "x.go:1:1:",
		},
		{
			name: "unknown verb",
			src:  "package x\n\n//featurescope:unless a\nfunc F() {}\n",
			want: ErrMalformedDirective,
			pos:  "x.go:3:1:",
		},
		{
			name: "bad expression",
			src:  "package x\n\n//featurescope:if any(a,\nfunc F() {}\n",
			want: ErrMalformedDirective,
			pos:  "x.go:3:1:",
		},
		{
			name: "if without expression",
			src:  "package x\n\n//featurescope:if\nfunc F() {}\n",
			want: ErrMalformedDirective,
			pos:  "x.go:3:1:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Scan(context.Background(), "x.go", []byte(tt.src))
			require.ErrorIs(t, err, tt.want)
			assert.True(t, strings.HasPrefix(err.Error(), tt.pos), err.Error())
		})
	}
}

func pruneTypes(t *testing.T, tokens ...encode.Token) string {
	t.Helper()
	path, src := readTypes(t)
	out, changed, err := Prune(context.Background(), path, src, NewEnv(typesPkg, tokens))
	require.NoError(t, err)
	require.True(t, changed)
	assert.Len(t, out, len(src), "pruning keeps byte offsets")
	assert.Equal(t, bytes.Count(src, []byte("\n")), bytes.Count(out, []byte("\n")))
	assert.NotContains(t, string(out), Prefix)
	return string(out)
}

func TestPrune_DefaultsInEffect(t *testing.T) {
	t.Parallel()
	out := pruneTypes(t, "example.com/types:a", "example.com/types:default")

	assert.Contains(t, out, `first = "a type"`)
	assert.Contains(t, out, `second = "default type"`)
	assert.NotContains(t, out, "b type")
	assert.Contains(t, out, "func First()")
}

func TestPrune_OverrideWithoutDefaults(t *testing.T) {
	t.Parallel()
	out := pruneTypes(t, "example.com/types:b")

	assert.Equal(t, 2, strings.Count(out, "b type"))
	assert.NotContains(t, out, "a type")
	assert.NotContains(t, out, "default type")
}

func TestPrune_IgnoresOtherPackagesTokens(t *testing.T) {
	t.Parallel()
	out := pruneTypes(t, "example.com/other:a", "example.com/other:default")
	assert.NotContains(t, out, "a type")
	assert.NotContains(t, out, "default type")
}

func TestPrune_OnlyViolationReportsItem(t *testing.T) {
	t.Parallel()
	src := []byte("package x\n\n//featurescope:if only(a, b)\nfunc F() {}\n\n//featurescope:if only(a, b)\nfunc G() {}\n")
	_, _, err := Prune(context.Background(), "x.go", src, envOf(false, "a", "b"))
	require.ErrorIs(t, err, ErrOnlyViolation)

	var diags Diagnostics
	require.ErrorAs(t, err, &diags)
	require.Len(t, diags, 2, "every violation is reported")
	assert.Equal(t, "x.go:3:1", diags[0].String()[:len("x.go:3:1")])
	assert.Contains(t, diags[1].Msg, "func G")
}

func TestPrune_UnannotatedFileUnchanged(t *testing.T) {
	t.Parallel()
	src := []byte("package x\n\n// Regular comment.\nfunc F() {}\n")
	out, changed, err := Prune(context.Background(), "x.go", src, envOf(false))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, src, out)
}

func TestApply_BlanksKeepNewlines(t *testing.T) {
	t.Parallel()
	src := []byte("package x\n\n//featurescope:if a\nfunc F() {\n}\nvar v = 1\n")
	items, err := Scan(context.Background(), "x.go", src)
	require.NoError(t, err)
	require.Len(t, items, 1)

	out := Apply(src, []Decision{{Item: items[0], Keep: false}})
	assert.Equal(t, "package x\n\n"+strings.Repeat(" ", len("//featurescope:if a"))+"\n"+
		strings.Repeat(" ", len("func F() {"))+"\n \nvar v = 1\n", string(out))
}

func TestPrune_DefaultAtomInIf(t *testing.T) {
	t.Parallel()
	src := []byte("package x\n\n//featurescope:if not(default)\nfunc Custom() {}\n\n//featurescope:if any(a, default)\nfunc Usual() {}\n")

	out, _, err := Prune(context.Background(), "x.go", src, envOf(true))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "Custom")
	assert.Contains(t, string(out), "func Usual() {}")

	out, _, err = Prune(context.Background(), "x.go", src, envOf(false, "b"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "func Custom() {}")
	assert.NotContains(t, string(out), "Usual")
}

// An import used only by guarded code is guarded with the same condition,
// otherwise dropping the code leaves it unused.
const guardedImportSrc = `package x

//featurescope:if b
import "strings"

import "fmt"

//featurescope:if b
func Upper(s string) string { return strings.ToUpper(s) }

func Hello() { fmt.Println("hi") }
`

func TestPrune_GuardedImport(t *testing.T) {
	t.Parallel()
	src := []byte(guardedImportSrc)

	items, err := Scan(context.Background(), "x.go", src)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "import", items[0].Name)
	assert.Equal(t, "func Upper", items[1].Name)

	out, changed, err := Prune(context.Background(), "x.go", src, envOf(false, "a"))
	require.NoError(t, err)
	require.True(t, changed)
	assert.NotContains(t, string(out), `"strings"`)
	assert.NotContains(t, string(out), "strings.ToUpper")
	assert.Contains(t, string(out), `import "fmt"`)
	assert.Equal(t, strings.Count(guardedImportSrc, "\n"), strings.Count(string(out), "\n"))

	out, _, err = Prune(context.Background(), "x.go", src, envOf(false, "b"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `import "strings"`)
	assert.Contains(t, string(out), "strings.ToUpper")
}

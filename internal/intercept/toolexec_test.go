package intercept

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/featurescope/internal/encode"
)

func testPlan() *encode.Plan {
	return &encode.Plan{
		Target: "example.com/entry_custom",
		Units: []encode.Unit{
			{Package: "example.com/types", Dir: "/src/my types", Tokens: []encode.Token{"example.com/types:b"}},
		},
		Tokens:      []encode.Token{"example.com/types:b"},
		Fingerprint: "0123456789abcdef",
	}
}

func TestToolexecWords(t *testing.T) {
	t.Parallel()
	words := ToolexecWords("/bin/featurescope", testPlan(), "time -v")
	assert.Equal(t, []string{
		"/bin/featurescope", "toolexec",
		"--scope", "example.com/types=/src/my types",
		"--token", "example.com/types:b",
		"--fingerprint", "0123456789abcdef",
		"--chain", "time -v",
		"--",
	}, words)
}

func TestJoinQuoted(t *testing.T) {
	t.Parallel()
	got, err := JoinQuoted([]string{"/bin/fs", "a b", "it's", ""})
	require.NoError(t, err)
	assert.Equal(t, `/bin/fs 'a b' "it's" ''`, got)

	_, err = JoinQuoted([]string{`both ' and "`})
	assert.Error(t, err)
}

func TestCommand(t *testing.T) {
	t.Parallel()

	build := Args{Global: []string{"-C", "x"}, Verb: "build", Rest: []string{"-o", "out", "."}}
	assert.Equal(t,
		[]string{"go", "-C", "x", "build", "-toolexec=/bin/fs toolexec --", "-o", "out", "."},
		Command("go", build, "/bin/fs toolexec --"))

	list := Args{Verb: "list", Rest: []string{"-m", "all"}}
	assert.Equal(t, []string{"go", "list", "-m", "all"}, Command("go", list, "/bin/fs toolexec --"),
		"verbs without build flags get no injection")

	assert.Equal(t, []string{"go", "version"}, Command("go", Args{Verb: "version"}, ""))
}

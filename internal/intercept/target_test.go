package intercept

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/featurescope/internal/encode"
	"github.com/jward/featurescope/internal/manifest"
)

func loadWorkspace(t *testing.T) *manifest.Workspace {
	t.Helper()
	ws, err := manifest.Load(filepath.Join("..", "..", "testdata", "workspace"))
	require.NoError(t, err)
	return ws
}

func TestSelectTarget(t *testing.T) {
	t.Parallel()
	ws := loadWorkspace(t)
	root := ws.Root

	tests := []struct {
		name string
		args Args
		cwd  string
		want manifest.PackageID
	}{
		{"explicit package", Args{Package: "example.com/entry_custom", Positional: "./entry_default"}, root, "example.com/entry_custom"},
		{"relative directory", Args{Positional: "./entry_custom"}, root, "example.com/entry_custom"},
		{"recursive pattern", Args{Positional: "./entry_default/..."}, root, "example.com/entry_default"},
		{"source file", Args{Positional: "main.go"}, filepath.Join(root, "entry_custom"), "example.com/entry_custom"},
		{"import path", Args{Positional: "example.com/entry_default"}, root, "example.com/entry_default"},
		{"working directory", Args{}, filepath.Join(root, "types"), "example.com/types"},
		{"-C directory", Args{Global: []string{"-C", "entry_custom"}}, root, "example.com/entry_custom"},
		{"whole workspace", Args{Positional: "./..."}, root, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := SelectTarget(ws, tt.args, tt.cwd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectTarget_UnknownPackage(t *testing.T) {
	t.Parallel()
	ws := loadWorkspace(t)
	_, err := SelectTarget(ws, Args{Package: "example.com/missing"}, ws.Root)
	require.ErrorIs(t, err, encode.ErrUnknownTarget)
	assert.Equal(t, ExitUnknownPackage, ConfigExitCode(err))
}

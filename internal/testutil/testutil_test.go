package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedent(t *testing.T) {
	got := Dedent(`
		[matrix]
		envlist = py38

		[env]
		commands =
		    pytest
	`)
	want := "\n[matrix]\nenvlist = py38\n\n[env]\ncommands =\n    pytest\n"
	assert.Equal(t, want, got)
}

func TestDedent_NoCommonPrefix(t *testing.T) {
	assert.Equal(t, "a\nb\n", Dedent("a\nb\n"))
}

func TestMakeFile(t *testing.T) {
	dir := t.TempDir()
	path := MakeFile(t, filepath.Join(dir, "nested", "file.txt"), "hello\n")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

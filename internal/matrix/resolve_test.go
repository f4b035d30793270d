package matrix

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[matrix]
envlist = py{38,39}, lint, doc

[env]
deps =
    pytest
    py38: backports-things
passenv = CI_* TERM
setenv =
    COVERAGE_FILE = .coverage.{envname}
commands = pytest {posargs}

[env:lint]
description = style checks
deps =
    pylint
    check-manifest
commands =
    pylint src
    -check-manifest

[env:doc]
description = render documentation
develop = true
changedir = doc
deps = sphinx
commands = sphinx-build -b html . _build
`

func TestResolve_InheritanceAndFactors(t *testing.T) {
	cfg := configFrom(t, sampleConfig)

	py38, err := cfg.Resolve("py38", ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "python3.8", py38.Interpreter)
	assert.Equal(t, []string{"pytest", "backports-things"}, py38.Deps)
	assert.Equal(t, []string{"CI_*", "TERM"}, py38.PassEnv)
	assert.Equal(t, []EnvVar{{Name: "COVERAGE_FILE", Value: ".coverage.py38"}}, py38.SetEnv)
	require.Len(t, py38.Commands, 1)
	assert.Equal(t, []string{"pytest"}, py38.Commands[0].Argv)

	// The py38-only conditional dep does not leak into py39.
	py39, err := cfg.Resolve("py39", ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"pytest"}, py39.Deps)
}

func TestResolve_SectionOverridesDefaults(t *testing.T) {
	cfg := configFrom(t, sampleConfig)

	lint, err := cfg.Resolve("lint", ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "style checks", lint.Description)
	assert.Empty(t, lint.Interpreter)
	assert.Equal(t, []string{"pylint", "check-manifest"}, lint.Deps)

	want := []Command{
		{Argv: []string{"pylint", "src"}},
		{Argv: []string{"check-manifest"}, IgnoreExit: true},
	}
	if diff := cmp.Diff(want, lint.Commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}

	// passenv and setenv still inherit from [env].
	assert.Equal(t, []string{"CI_*", "TERM"}, lint.PassEnv)
}

func TestResolve_DevelopAndChangedir(t *testing.T) {
	cfg := configFrom(t, sampleConfig)

	doc, err := cfg.Resolve("doc", ResolveOptions{})
	require.NoError(t, err)
	assert.True(t, doc.Develop)
	assert.Equal(t, "doc", doc.ChangeDir)
	assert.Equal(t, []string{"sphinx"}, doc.Deps)
}

func TestResolve_PosArgs(t *testing.T) {
	cfg := configFrom(t, sampleConfig)

	env, err := cfg.Resolve("py38", ResolveOptions{PosArgs: []string{"-k", "test_one"}})
	require.NoError(t, err)
	require.Len(t, env.Commands, 1)
	assert.Equal(t, []string{"pytest", "-k", "test_one"}, env.Commands[0].Argv)
}

func TestResolve_UndefinedEnv(t *testing.T) {
	cfg := configFrom(t, sampleConfig)

	// Version factor: resolves from defaults alone.
	env, err := cfg.Resolve("py310", ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "python3.10", env.Interpreter)

	// No version factor, no section: undefined.
	_, err = cfg.Resolve("nosuch", ResolveOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not defined")
}

func TestResolve_ResolveAllKeepsOrder(t *testing.T) {
	cfg := configFrom(t, sampleConfig)

	envs, err := cfg.ResolveAll(ResolveOptions{})
	require.NoError(t, err)

	var names []string
	for _, e := range envs {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"py38", "py39", "lint", "doc"}, names)
}

func TestResolve_BadDevelop(t *testing.T) {
	cfg := configFrom(t, `
[env:bad]
develop = maybe
`)
	_, err := cfg.Resolve("bad", ResolveOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "develop")
	assert.Contains(t, err.Error(), "matrix.ini:3")
}

func TestResolve_BadSetenv(t *testing.T) {
	cfg := configFrom(t, `
[env:bad]
setenv =
    NOT_A_PAIR
`)
	_, err := cfg.Resolve("bad", ResolveOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NAME=VALUE")
}

func TestParseCommand_Quoting(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{`echo hello world`, Command{Argv: []string{"echo", "hello", "world"}}},
		{`echo "two words"`, Command{Argv: []string{"echo", "two words"}}},
		{`echo 'single "quoted"'`, Command{Argv: []string{"echo", `single "quoted"`}}},
		{`echo escaped\ space`, Command{Argv: []string{"echo", "escaped space"}}},
		{`-false`, Command{Argv: []string{"false"}, IgnoreExit: true}},
	}
	for _, tc := range cases {
		got, err := parseCommand(tc.line)
		require.NoError(t, err, tc.line)
		assert.Equal(t, tc.want, got, tc.line)
	}

	_, err := parseCommand(`echo "unterminated`)
	assert.Error(t, err)
}

func TestResolve_FactorLinesWithLiteralColons(t *testing.T) {
	cfg := configFrom(t, `
[matrix]
envlist = py38

[env:py38]
commands =
    echo http://example.com/path
`)
	env, err := cfg.Resolve("py38", ResolveOptions{})
	require.NoError(t, err)
	require.Len(t, env.Commands, 1)
	// "http" is not a known factor, so the colon line passes through.
	assert.Equal(t, []string{"echo", "http://example.com/path"}, env.Commands[0].Argv)
}

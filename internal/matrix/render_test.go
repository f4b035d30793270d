package matrix

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testmatrix/internal/ini"
	"testmatrix/internal/testutil"
)

func TestRender_Canonical(t *testing.T) {
	cfg := configFrom(t, `
[matrix]
envlist = py{38,39},lint
minversion   =   1.0

[env]
deps = pytest, coverage
commands = pytest {posargs}
`)

	want := testutil.Dedent(`
		[matrix]
		envlist =
		    py{38,39}
		    lint
		minversion = 1.0

		[env]
		deps =
		    pytest
		    coverage
		commands =
		    pytest {posargs}
	`)
	assert.Equal(t, strings.TrimLeft(want, "\n"), cfg.Render())
}

func TestRender_FixedPoint(t *testing.T) {
	cfg := configFrom(t, sampleConfig)

	once := cfg.Render()
	file, err := ini.Parse(strings.NewReader(once), "matrix.ini")
	require.NoError(t, err)
	cfg2, err := Parse(file, "matrix.ini")
	require.NoError(t, err)

	assert.Equal(t, once, cfg2.Render())
}

func TestRender_PreservesSectionOrder(t *testing.T) {
	cfg := configFrom(t, `
[env:zeta]
commands = true

[env:alpha]
commands = true
`)
	rendered := cfg.Render()
	assert.Less(t, strings.Index(rendered, "[env:zeta]"), strings.Index(rendered, "[env:alpha]"))
}

func TestRender_EmptyMultiValueKey(t *testing.T) {
	cfg := configFrom(t, "[env]\ndeps =\n")
	assert.Equal(t, "[env]\ndeps =\n", cfg.Render())
}

package runner

import (
	"bytes"
	"context"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"testmatrix/internal/matrix"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests shell out to sh")
	}
}

func shellEnv(name string, commands ...matrix.Command) *matrix.Environment {
	return &matrix.Environment{Name: name, Commands: commands}
}

func sh(script string) matrix.Command {
	return matrix.Command{Argv: []string{"sh", "-c", script}}
}

func TestRun_CapturesOutputAndExitCodes(t *testing.T) {
	requireUnix(t)

	r := New(Options{Environ: os.Environ(), BaseDir: t.TempDir()}, nil)
	env := shellEnv("py38", sh("echo out; echo err >&2"))

	result, err := r.Run(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, result.Commands, 1)

	cr := result.Commands[0]
	assert.Equal(t, 0, cr.ExitCode)
	assert.Equal(t, "out\n", cr.Stdout)
	assert.Equal(t, "err\n", cr.Stderr)
	assert.False(t, result.Failed())
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	requireUnix(t)

	r := New(Options{Environ: os.Environ(), BaseDir: t.TempDir()}, nil)
	env := shellEnv("py38",
		sh("exit 3"),
		sh("echo never"),
	)

	result, err := r.Run(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, result.Commands, 1)
	assert.Equal(t, 3, result.Commands[0].ExitCode)
	assert.True(t, result.Failed())
}

func TestRun_IgnoredExitContinues(t *testing.T) {
	requireUnix(t)

	r := New(Options{Environ: os.Environ(), BaseDir: t.TempDir()}, nil)
	ignored := sh("exit 3")
	ignored.IgnoreExit = true
	env := shellEnv("py38", ignored, sh("echo reached"))

	result, err := r.Run(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, result.Commands, 2)
	assert.Equal(t, 3, result.Commands[0].ExitCode)
	assert.Equal(t, "reached\n", result.Commands[1].Stdout)
	assert.False(t, result.Failed())
}

func TestRun_PassenvFiltersEnvironment(t *testing.T) {
	requireUnix(t)

	parent := []string{
		"PATH=" + os.Getenv("PATH"),
		"SECRET_TOKEN=hunter2",
		"CI_NODE=4",
		"CI_STAGE=test",
	}
	env := &matrix.Environment{
		Name:    "py38",
		PassEnv: []string{"CI_*"},
		SetEnv:  []matrix.EnvVar{{Name: "MODE", Value: "fast"}},
		Commands: []matrix.Command{
			sh("echo secret=${SECRET_TOKEN:-unset} node=$CI_NODE mode=$MODE name=$MATRIX_ENV_NAME"),
		},
	}

	r := New(Options{Environ: parent, BaseDir: t.TempDir()}, nil)
	result, err := r.Run(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, result.Commands, 1)
	assert.Equal(t, "secret=unset node=4 mode=fast name=py38\n", result.Commands[0].Stdout)
}

func TestRun_SetenvOverridesPassedVariable(t *testing.T) {
	requireUnix(t)

	parent := []string{"PATH=" + os.Getenv("PATH"), "MODE=slow"}
	env := &matrix.Environment{
		Name:     "py38",
		PassEnv:  []string{"MODE"},
		SetEnv:   []matrix.EnvVar{{Name: "MODE", Value: "fast"}},
		Commands: []matrix.Command{sh("echo $MODE")},
	}

	r := New(Options{Environ: parent, BaseDir: t.TempDir()}, nil)
	result, err := r.Run(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, "fast\n", result.Commands[0].Stdout)
}

func TestRun_Timeout(t *testing.T) {
	requireUnix(t)

	r := New(Options{
		Environ: os.Environ(),
		BaseDir: t.TempDir(),
		Timeout: 100 * time.Millisecond,
	}, nil)
	env := shellEnv("py38", sh("sleep 5"))

	start := time.Now()
	result, err := r.Run(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, result.Commands, 1)
	assert.True(t, result.Commands[0].Killed)
	assert.Contains(t, result.Commands[0].KillReason, "timeout")
	assert.True(t, result.Failed())
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRun_ContextCancel(t *testing.T) {
	requireUnix(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	r := New(Options{Environ: os.Environ(), BaseDir: t.TempDir()}, nil)
	env := shellEnv("py38", sh("sleep 5"))

	result, err := r.Run(ctx, env)
	require.NoError(t, err)
	require.Len(t, result.Commands, 1)
	assert.True(t, result.Commands[0].Killed)
}

func TestRun_MissingBinary(t *testing.T) {
	requireUnix(t)

	r := New(Options{Environ: os.Environ(), BaseDir: t.TempDir()}, nil)
	env := shellEnv("py38", matrix.Command{Argv: []string{"definitely-not-a-real-binary-zz"}})

	result, err := r.Run(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, result.Commands, 1)
	assert.Error(t, result.Commands[0].Err)
	assert.True(t, result.Failed())
}

func TestRun_Changedir(t *testing.T) {
	requireUnix(t)

	base := t.TempDir()
	require.NoError(t, os.Mkdir(base+"/sub", 0o755))

	env := &matrix.Environment{
		Name:      "py38",
		ChangeDir: "sub",
		Commands:  []matrix.Command{sh("pwd")},
	}
	r := New(Options{Environ: os.Environ(), BaseDir: base}, nil)

	result, err := r.Run(context.Background(), env)
	require.NoError(t, err)
	assert.Contains(t, result.Commands[0].Stdout, "/sub")
}

func TestRun_OutputLimit(t *testing.T) {
	requireUnix(t)

	r := New(Options{
		Environ:        os.Environ(),
		BaseDir:        t.TempDir(),
		MaxOutputBytes: 16,
	}, nil)
	env := shellEnv("py38", sh(`i=0; while [ $i -lt 100 ]; do echo 0123456789; i=$((i+1)); done`))

	result, err := r.Run(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, result.Commands, 1)
	assert.True(t, result.Commands[0].Truncated)
	assert.Len(t, result.Commands[0].Stdout, 16)
}

func TestRun_Echo(t *testing.T) {
	requireUnix(t)

	var live bytes.Buffer
	r := New(Options{
		Environ: os.Environ(),
		BaseDir: t.TempDir(),
		Echo:    true,
		Stdout:  &live,
		Stderr:  &live,
	}, nil)
	env := shellEnv("py38", sh("echo streamed"))

	result, err := r.Run(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, "streamed\n", live.String())
	assert.Equal(t, "streamed\n", result.Commands[0].Stdout)
}

func TestBuildEnviron_AlwaysPassesPath(t *testing.T) {
	parent := []string{"PATH=/usr/bin", "OTHER=x"}
	env := &matrix.Environment{Name: "e"}

	got := buildEnviron(parent, env)
	assert.Contains(t, got, "PATH=/usr/bin")
	assert.NotContains(t, got, "OTHER=x")
	assert.Contains(t, got, "MATRIX_ENV_NAME=e")
}

// Package runner invokes the command lines of resolved environments.
//
// It is deliberately not an orchestration engine: environments run
// sequentially, commands run sequentially within an environment, and
// nothing is provisioned or installed. The runner's job is the subprocess
// mechanics: building the pass-through environment, timeouts, output
// capture, and structured results.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"testmatrix/internal/iox"
	"testmatrix/internal/matrix"
)

// DefaultMaxOutputBytes caps captured output per command.
const DefaultMaxOutputBytes = 10 << 20

// Options configures a Runner.
type Options struct {
	// Timeout bounds each command. Zero means no per-command timeout.
	Timeout time.Duration

	// MaxOutputBytes caps captured stdout/stderr per command. Zero
	// means DefaultMaxOutputBytes.
	MaxOutputBytes int64

	// Environ is the parent process environment to filter through
	// passenv, as KEY=VALUE strings. Usually os.Environ().
	Environ []string

	// BaseDir anchors relative changedir values; usually the config
	// file's directory.
	BaseDir string

	// Echo streams command output live to Stdout/Stderr while still
	// capturing it.
	Echo bool

	// Stdout and Stderr receive echoed output when Echo is set.
	Stdout io.Writer
	Stderr io.Writer
}

// Runner executes resolved environments.
type Runner struct {
	opts Options
	log  *zap.Logger
}

// New creates a Runner. A nil logger is replaced with a no-op logger.
func New(opts Options, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return &Runner{opts: opts, log: log}
}

// CommandResult records one command invocation.
type CommandResult struct {
	Argv       []string
	ExitCode   int
	IgnoreExit bool
	Stdout     string
	Stderr     string
	Duration   time.Duration
	Truncated  bool
	Killed     bool
	KillReason string
	Err        error
}

// Failed reports whether this command counts as a failure for the
// environment. Ignored exit statuses never fail; kills always do.
func (r CommandResult) Failed() bool {
	if r.Killed || r.Err != nil {
		return true
	}
	return r.ExitCode != 0 && !r.IgnoreExit
}

// EnvResult records a full environment run.
type EnvResult struct {
	Env      string
	Commands []CommandResult
	Duration time.Duration
}

// Failed reports whether any command of the environment failed.
func (r EnvResult) Failed() bool {
	for _, c := range r.Commands {
		if c.Failed() {
			return true
		}
	}
	return false
}

// Run executes every command of env in order, stopping at the first
// failure whose exit status is not marked ignored. The returned error is
// only for infrastructure problems; command failures are reported through
// the result.
func (r *Runner) Run(ctx context.Context, env *matrix.Environment) (*EnvResult, error) {
	result := &EnvResult{Env: env.Name}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	dir := r.opts.BaseDir
	if env.ChangeDir != "" {
		if filepath.IsAbs(env.ChangeDir) {
			dir = env.ChangeDir
		} else {
			dir = filepath.Join(r.opts.BaseDir, env.ChangeDir)
		}
	}
	procEnv := buildEnviron(r.opts.Environ, env)

	r.log.Info("running environment",
		zap.String("env", env.Name),
		zap.Int("commands", len(env.Commands)),
		zap.String("dir", dir))

	for _, cmd := range env.Commands {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		cr := r.runCommand(ctx, cmd, dir, procEnv)
		result.Commands = append(result.Commands, cr)
		if cr.Failed() {
			r.log.Warn("command failed, stopping environment",
				zap.String("env", env.Name),
				zap.Strings("argv", cmd.Argv),
				zap.Int("exit_code", cr.ExitCode))
			break
		}
	}
	return result, nil
}

func (r *Runner) runCommand(ctx context.Context, cmd matrix.Command, dir string, environ []string) CommandResult {
	result := CommandResult{Argv: cmd.Argv, IgnoreExit: cmd.IgnoreExit, ExitCode: -1}

	cmdCtx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	stdout := iox.NewLimitWriter(&stdoutBuf, r.opts.MaxOutputBytes)
	stderr := iox.NewLimitWriter(&stderrBuf, r.opts.MaxOutputBytes)

	proc := exec.CommandContext(cmdCtx, cmd.Argv[0], cmd.Argv[1:]...)
	proc.Dir = dir
	proc.Env = environ
	// Don't wait on output pipes held open by grandchildren after a kill.
	proc.WaitDelay = 2 * time.Second
	proc.Stdout = io.Writer(stdout)
	proc.Stderr = io.Writer(stderr)
	if r.opts.Echo {
		proc.Stdout = iox.NewTee(r.opts.Stdout, stdout)
		proc.Stderr = iox.NewTee(r.opts.Stderr, stderr)
	}

	r.log.Debug("exec", zap.Strings("argv", cmd.Argv), zap.String("dir", dir))

	start := time.Now()
	err := proc.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()

	if t, _ := stdout.Truncated(); t {
		result.Truncated = true
	}
	if t, _ := stderr.Truncated(); t {
		result.Truncated = true
	}

	switch {
	case err == nil:
		result.ExitCode = 0
	case cmdCtx.Err() == context.DeadlineExceeded:
		result.Killed = true
		result.KillReason = fmt.Sprintf("timeout after %s", r.opts.Timeout)
	case cmdCtx.Err() == context.Canceled:
		result.Killed = true
		result.KillReason = "canceled"
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// Spawn failure: missing binary, bad directory.
			result.Err = err
		}
	}
	return result
}

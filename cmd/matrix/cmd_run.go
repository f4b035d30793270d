package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"testmatrix/internal/history"
	"testmatrix/internal/matrix"
	"testmatrix/internal/runner"
)

var (
	runEnvs    []string
	runTimeout time.Duration
	runQuiet   bool
)

// runCmd invokes the command lines of the selected environments.
var runCmd = &cobra.Command{
	Use:   "run [ENV]... [-- POSARGS...]",
	Short: "Run the commands of the declared environments",
	Long: `Resolves the selected environments (all of the envlist by default,
or those named positionally or with -e) and invokes their command lines
sequentially. Arguments after -- are substituted for {posargs}.

Each environment's commands run in order; the first failure stops that
environment unless the command is prefixed with '-' in the config.
Later environments still run. The exit status is non-zero when any
environment failed.

Dependencies are declarative: they are shown, never installed.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runEnvs, "env", "e", nil, "environment to run (repeatable; default: envlist)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "per-command timeout (0 = setting or none)")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "suppress live command output")
}

func runRun(cmd *cobra.Command, args []string) error {
	var posArgs []string
	if at := cmd.ArgsLenAtDash(); at >= 0 {
		posArgs = args[at:]
		args = args[:at]
	}
	cfg, err := loadMatrix()
	if err != nil {
		return err
	}

	// Positional names and -e both select environments.
	selected := append(append([]string(nil), args...), runEnvs...)
	names := cfg.EnvList
	if len(selected) > 0 {
		names = selected
	}
	if len(names) == 0 {
		return fmt.Errorf("no environments selected: envlist is empty and none named")
	}

	timeout := runTimeout
	if timeout == 0 {
		timeout = settings.Timeout
	}
	r := runner.New(runner.Options{
		Timeout: timeout,
		Environ: os.Environ(),
		BaseDir: cfg.Dir,
		Echo:    !runQuiet,
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
	}, logger)

	var ledger *history.Store
	if settings.History {
		ledger, err = history.Open(history.DefaultPath(cfg.Dir))
		if err != nil {
			logger.Warn("history disabled", zap.Error(err))
			ledger = nil
		} else {
			defer ledger.Close()
		}
	}

	out := cmd.OutOrStdout()
	failures := 0
	for _, name := range names {
		env, err := cfg.Resolve(name, matrix.ResolveOptions{PosArgs: posArgs})
		if err != nil {
			return err
		}

		header := styleName.Render(name)
		if env.Interpreter != "" {
			header += " " + styleMuted.Render("("+env.Interpreter+")")
		}
		fmt.Fprintln(out, header)
		started := time.Now()
		result, err := r.Run(cmd.Context(), env)
		if err != nil {
			return err
		}
		recordRun(cmd, ledger, started, result)

		if result.Failed() {
			failures++
			fmt.Fprintf(out, "%s %s (%s)\n", styleFail.Render("✗"), name, result.Duration.Round(time.Millisecond))
			continue
		}
		fmt.Fprintf(out, "%s %s (%s)\n", stylePass.Render("✓"), name, result.Duration.Round(time.Millisecond))
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d environments failed", failures, len(names))
	}
	return nil
}

// recordRun persists an environment outcome. Ledger failures are logged
// and otherwise ignored: history must never fail a run.
func recordRun(cmd *cobra.Command, ledger *history.Store, started time.Time, result *runner.EnvResult) {
	if ledger == nil {
		return
	}
	rec := history.Record{
		Env:        result.Env,
		StartedAt:  started,
		FinishedAt: started.Add(result.Duration),
		Failed:     result.Failed(),
	}
	for _, c := range result.Commands {
		rec.Commands = append(rec.Commands, history.CommandRecord{
			Argv:     c.Argv,
			ExitCode: c.ExitCode,
			Ignored:  c.IgnoreExit,
			Killed:   c.Killed,
		})
	}
	if _, err := ledger.Add(cmd.Context(), rec); err != nil {
		logger.Warn("could not record run", zap.Error(err))
	}
}

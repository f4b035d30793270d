package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"testmatrix/internal/matrix"
)

var validateWatch bool

// validateCmd checks matrix files for problems.
var validateCmd = &cobra.Command{
	Use:   "validate [FILE...]",
	Short: "Validate matrix configuration files",
	Long: `Parses each file and resolves every declared environment, reporting
syntax errors, unresolvable substitutions, undefined environments, and
unknown keys. With no arguments the --config file is validated.

--watch keeps running and re-validates whenever a file changes.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateWatch, "watch", false, "re-validate on file changes")
}

func runValidate(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		paths = []string{configPath}
	}

	if validateWatch {
		return watchValidate(cmd, paths)
	}

	failed, err := validateAll(cmd, paths)
	if err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}

// validateAll validates every path concurrently and prints findings in
// path order. Returns whether any file had error-severity problems.
func validateAll(cmd *cobra.Command, paths []string) (bool, error) {
	type outcome struct {
		problems []matrix.Problem
		loadErr  error
	}
	results := make([]outcome, len(paths))

	g, _ := errgroup.WithContext(cmd.Context())
	for i, path := range paths {
		g.Go(func() error {
			cfg, err := matrix.Load(path)
			if err != nil {
				results[i] = outcome{loadErr: err}
				return nil
			}
			results[i] = outcome{problems: cfg.Validate(matrix.ResolveOptions{})}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	out := cmd.OutOrStdout()
	failed := false
	for i, path := range paths {
		res := results[i]
		switch {
		case res.loadErr != nil:
			failed = true
			fmt.Fprintf(out, "%s %s\n", styleFail.Render("✗"), res.loadErr)
		case matrix.HasErrors(res.problems):
			failed = true
			printProblems(cmd, res.problems)
		case len(res.problems) > 0:
			printProblems(cmd, res.problems)
			fmt.Fprintf(out, "%s %s (with warnings)\n", styleWarn.Render("✓"), path)
		default:
			fmt.Fprintf(out, "%s %s\n", stylePass.Render("✓"), path)
		}
	}
	return failed, nil
}

func printProblems(cmd *cobra.Command, problems []matrix.Problem) {
	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].Line < problems[j].Line
	})
	for _, p := range problems {
		badge := styleWarn.Render("warning")
		if p.Severity == matrix.SeverityError {
			badge = styleFail.Render("error")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", badge, p)
	}
}

// watchValidate validates once, then re-validates a file each time it
// changes, until interrupted. Watches cover the parent directories, so
// editor save patterns (rename + create) still surface, and rapid
// events are debounced.
func watchValidate(cmd *cobra.Command, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool, len(paths))
	for _, p := range paths {
		// Watch the directory: most editors replace the file on save.
		dir := filepath.Dir(p)
		if !watched[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			watched[dir] = true
		}
	}

	if _, err := validateAll(cmd, paths); err != nil {
		return err
	}

	wanted := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		wanted[abs] = true
	}

	var (
		mu      sync.Mutex
		pending bool
	)
	rerun := func(ctx context.Context) {
		mu.Lock()
		if pending {
			mu.Unlock()
			return
		}
		pending = true
		mu.Unlock()

		// Debounce rapid saves.
		select {
		case <-time.After(300 * time.Millisecond):
		case <-ctx.Done():
			return
		}

		mu.Lock()
		pending = false
		mu.Unlock()

		fmt.Fprintln(cmd.OutOrStdout())
		if _, err := validateAll(cmd, paths); err != nil {
			logger.Warn("re-validation failed", zap.Error(err))
		}
	}

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !wanted[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				go rerun(ctx)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(werr))
		}
	}
}

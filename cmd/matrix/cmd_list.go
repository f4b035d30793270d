package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"testmatrix/internal/matrix"
)

var listAll bool

// listCmd prints the declared environments.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List environments from the matrix file",
	Long: `Lists the environments the envlist declares, with their resolved
interpreter and description. With --all, environments defined in the
file but absent from the envlist are included as well.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "include environments not in the envlist")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadMatrix()
	if err != nil {
		return err
	}

	names := append([]string(nil), cfg.EnvList...)
	if listAll {
		listed := make(map[string]bool, len(names))
		for _, n := range names {
			listed[n] = true
		}
		for _, n := range cfg.DefinedEnvs() {
			if !listed[n] {
				names = append(names, n)
			}
		}
	}
	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No environments declared.")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, name := range names {
		env, err := cfg.Resolve(name, matrix.ResolveOptions{})
		if err != nil {
			// Full diagnostics belong to `validate`; list just flags it.
			fmt.Fprintf(out, "%s  %s\n", styleFail.Render("!"), name)
			logger.Debug("resolve failed during list", zap.Error(err))
			continue
		}
		line := styleName.Render(name)
		if env.Interpreter != "" {
			line += "  " + styleMuted.Render(env.Interpreter)
		}
		if env.Description != "" {
			line += "  " + env.Description
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

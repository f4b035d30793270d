package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"testmatrix/internal/matrix"
)

var showFormat string

// showCmd prints one fully resolved environment.
var showCmd = &cobra.Command{
	Use:   "show ENV",
	Short: "Show a fully resolved environment",
	Long: `Resolves a single environment (inheritance, factor filters,
substitutions) and prints the result. Positional arguments after --
are substituted for {posargs}.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showFormat, "output", "o", "text", "output format: text or yaml")
}

func runShow(cmd *cobra.Command, args []string) error {
	name := args[0]
	var posArgs []string
	if at := cmd.ArgsLenAtDash(); at >= 0 {
		posArgs = args[at:]
		if at < 1 {
			return fmt.Errorf("environment name required before --")
		}
	}

	cfg, err := loadMatrix()
	if err != nil {
		return err
	}
	env, err := cfg.Resolve(name, matrix.ResolveOptions{PosArgs: posArgs})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch showFormat {
	case "yaml":
		data, err := yaml.Marshal(env)
		if err != nil {
			return fmt.Errorf("encode environment: %w", err)
		}
		fmt.Fprint(out, string(data))
	case "text":
		fmt.Fprintln(out, styleName.Render(env.Name))
		if env.Interpreter != "" {
			fmt.Fprintf(out, "  interpreter: %s\n", env.Interpreter)
		}
		if env.Description != "" {
			fmt.Fprintf(out, "  description: %s\n", env.Description)
		}
		if env.Develop {
			fmt.Fprintln(out, "  develop: true")
		}
		if env.ChangeDir != "" {
			fmt.Fprintf(out, "  changedir: %s\n", env.ChangeDir)
		}
		if len(env.Deps) > 0 {
			fmt.Fprintf(out, "  deps: %s\n", strings.Join(env.Deps, ", "))
		}
		if len(env.PassEnv) > 0 {
			fmt.Fprintf(out, "  passenv: %s\n", strings.Join(env.PassEnv, " "))
		}
		for _, sv := range env.SetEnv {
			fmt.Fprintf(out, "  setenv: %s=%s\n", sv.Name, sv.Value)
		}
		for _, c := range env.Commands {
			fmt.Fprintf(out, "  command: %s\n", c)
		}
	default:
		return fmt.Errorf("unknown output format %q", showFormat)
	}
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

var (
	fmtDiff  bool
	fmtWrite bool
)

// fmtCmd canonically formats a matrix file.
var fmtCmd = &cobra.Command{
	Use:   "fmt",
	Short: "Canonically format the matrix file",
	Long: `Rewrites the matrix file in canonical form: normalized spacing,
multi-valued keys one entry per line, comments dropped. By default the
formatted text is printed; --write rewrites the file in place and
--diff prints a unified diff against the current contents.

Exits non-zero under --diff when the file is not canonical.`,
	Args: cobra.NoArgs,
	RunE: runFmt,
}

func init() {
	fmtCmd.Flags().BoolVarP(&fmtDiff, "diff", "d", false, "print a unified diff instead of the formatted file")
	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false, "rewrite the file in place")
}

func runFmt(cmd *cobra.Command, args []string) error {
	original, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", configPath, err)
	}
	cfg, err := loadMatrix()
	if err != nil {
		return err
	}
	formatted := cfg.Render()

	switch {
	case fmtDiff:
		if string(original) == formatted {
			return nil
		}
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(original)),
			B:        difflib.SplitLines(formatted),
			FromFile: configPath,
			ToFile:   configPath + " (formatted)",
			Context:  3,
		})
		if err != nil {
			return fmt.Errorf("compute diff: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), diff)
		return fmt.Errorf("%s is not canonically formatted", configPath)
	case fmtWrite:
		if string(original) == formatted {
			return nil
		}
		info, err := os.Stat(configPath)
		if err != nil {
			return err
		}
		if err := os.WriteFile(configPath, []byte(formatted), info.Mode().Perm()); err != nil {
			return fmt.Errorf("write %s: %w", configPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "formatted %s\n", configPath)
		return nil
	default:
		fmt.Fprint(cmd.OutOrStdout(), formatted)
		return nil
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"testmatrix/internal/history"
	"testmatrix/internal/matrix"
)

var historyLimit int

// historyCmd lists recorded runs.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := matrix.Load(configPath)
	if err != nil {
		return err
	}
	ledger, err := history.Open(history.DefaultPath(cfg.Dir))
	if err != nil {
		return err
	}
	defer ledger.Close()

	runs, err := ledger.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs.")
		return nil
	}

	for _, r := range runs {
		badge := stylePass.Render("✓")
		if r.Failed {
			badge = styleFail.Render("✗")
		}
		fmt.Fprintf(out, "%s %s  %s  %d commands  %s\n",
			badge,
			r.StartedAt.Format(time.DateTime),
			styleName.Render(r.Env),
			len(r.Commands),
			styleMuted.Render(r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()),
		)
	}
	return nil
}

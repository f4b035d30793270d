package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// docsCmd renders project documentation in the terminal.
var docsCmd = &cobra.Command{
	Use:   "docs [FILE]",
	Short: "Render project documentation in the terminal",
	Long: `Renders a Markdown document for reading in the terminal. With no
argument, README.md next to the matrix file is rendered.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDocs,
}

func runDocs(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := loadMatrix()
		if err != nil {
			return err
		}
		path = filepath.Join(cfg.Dir, "README.md")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	rendered, err := renderer.Render(string(data))
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

// Command matrix works with test-matrix configuration files: it lists,
// resolves, validates, formats, and runs the environments they declare.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"testmatrix/internal/config"
	"testmatrix/internal/matrix"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Tool settings, loaded before every command.
	settings config.Settings

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "matrix",
	Short: "matrix - test-matrix environment tool",
	Long: `matrix reads a test-matrix configuration file (matrix.ini) declaring
named environments: interpreter version, dependency list, pass-through
variables, installation mode, and command lines.

It can list and inspect resolved environments, validate and format the
file, invoke the declared commands, and show past run outcomes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		settings, err = config.Load(config.SettingsPath(cwd))
		if err != nil {
			return err
		}
		// The flag wins over settings and environment.
		if !cmd.Root().PersistentFlags().Changed("config") && settings.ConfigPath != "" {
			configPath = settings.ConfigPath
		}
		initStyles(settings.NoColor)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadMatrix parses the matrix file named by --config.
func loadMatrix() (*matrix.Config, error) {
	cfg, err := matrix.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "matrix.ini", "matrix configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(fmtCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(docsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

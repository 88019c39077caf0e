package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nedpals/opentaxjs/pkg/config"
	"github.com/nedpals/opentaxjs/pkg/telemetry/logging"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "opentax",
	Short: "Opentax - declarative tax rule evaluator",
	Long: `Opentax evaluates declarative tax calculation rules.

Rules are JSON documents carrying constants, progressive bracket tables,
typed inputs, and a sequential calculation flow. The evaluator resolves
expressions, applies flow operations, and reports the declared outputs
together with the final liability.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger builds the process logger honoring --verbose.
func newLogger() *slog.Logger {
	cfg := config.LoggingConfig{Level: "info", Format: "text"}
	if verbose {
		cfg.Level = "debug"
	}
	logger, err := logging.New(&cfg, os.Stderr)
	if err != nil {
		return slog.Default()
	}
	return logger
}

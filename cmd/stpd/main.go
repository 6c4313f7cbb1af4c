package main

import (
	"cashflow_stp/internal/config"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName = "stpd"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          appName,
		Short:        "Straight-through processing and netting for cashflows",
		Long:         `Evaluates configured business rules against cashflows, marks the ones that need manual review as NON-STP and nets the rest by counterparty, currency and settlement date.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML configuration (built-in defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "sqlite database path, overrides database.path")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newEvaluateCmd(opts),
		newNetCmd(opts),
		newSeedCmd(opts),
	)

	return rootCmd
}

// load reads the configuration and builds the logger it asks for. Logs go
// to stderr so command output on stdout stays clean.
func (o *rootOptions) load(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}

	return cfg, setupLogger(stderr, level), nil
}

func setupLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(w, opts)
	return slog.New(handler)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

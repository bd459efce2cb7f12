package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/drishti/internal/config"
	"github.com/ayusman/drishti/internal/logging"
	"github.com/ayusman/drishti/internal/store"
)

// Version is the application version.
const Version = "0.1.0"

var (
	cfg    *config.Config
	logger *zap.Logger
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:           "drishti",
	Short:         "Webcam eye-wellness monitor",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if dbPath != "" {
			cfg.DBPath = dbPath
		}

		var err error
		logger, err = logging.NewLogger(logging.Options{
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Service: "drishti",
			File:    cfg.LogFile,
		})
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: $DB_PATH or ~/.drishti/drishti.db)")
}

// openStore opens the configured database.
func openStore() (*store.Store, error) {
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}
	return st, nil
}

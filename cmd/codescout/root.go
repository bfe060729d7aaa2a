package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ykosuru/vsix-sub002/internal/config"
	"github.com/ykosuru/vsix-sub002/internal/indexer"
	"github.com/ykosuru/vsix-sub002/internal/logging"
	"github.com/ykosuru/vsix-sub002/internal/storage"
	"github.com/ykosuru/vsix-sub002/internal/workspace"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	flagConfig    string
	flagDB        string
	flagLogLevel  string
	flagLogFormat string
)

// loaded by the root command before any subcommand runs
var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "codescout",
	Short:         "Index source trees and search them with natural language",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if flagConfig != "" {
			cfg, err = config.LoadFile(flagConfig)
		} else {
			wd, _ := os.Getwd()
			cfg, err = config.Load(wd)
		}
		if err != nil {
			return err
		}
		if flagDB != "" {
			cfg.Storage.DBPath = flagDB
		}
		if cmd.Flags().Changed("log-level") || cfg.Logging.Level == "" {
			cfg.Logging.Level = flagLogLevel
		}
		if cmd.Flags().Changed("log-format") || cfg.Logging.Format == "" {
			cfg.Logging.Format = flagLogFormat
		}
		logger = newLogger(cfg.Logging)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ./codescout.yaml or ~/.codescout/codescout.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "snapshot database path (default "+config.DefaultDBPath+")")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level: debug, info, warn, error or off")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format: text or json")
}

// newLogger writes to stderr; stdout carries results and the MCP protocol
func newLogger(lc config.LoggingConfig) *slog.Logger {
	level := logging.LevelFromString(lc.Level)
	if strings.EqualFold(lc.Format, "json") {
		return logging.NewJSON(os.Stderr, level)
	}
	return logging.New(os.Stderr, level)
}

// openStore opens the configured snapshot database, creating its directory
func openStore() (storage.Storage, error) {
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	return store, nil
}

// openIndex hands fn an index read from a snapshot file when one is given,
// otherwise the stored snapshot of the workspace at path
func openIndex(ctx context.Context, snapshotFile, path string, fn func(ix *indexer.Index) error) error {
	if snapshotFile != "" {
		f, err := os.Open(snapshotFile)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer func() { _ = f.Close() }()
		ix := indexer.New(cfg.IndexerConfig(logger))
		if _, err := ix.Import(ctx, f); err != nil {
			return fmt.Errorf("import %s: %w", snapshotFile, err)
		}
		return fn(ix)
	}
	return withManager(func(m *workspace.Manager) error {
		ix, err := m.Index(ctx, path)
		if err != nil {
			return err
		}
		return fn(ix)
	})
}

// withManager opens the store and hands a workspace manager to fn
func withManager(fn func(m *workspace.Manager) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(workspace.NewManager(cfg, store, logger))
}

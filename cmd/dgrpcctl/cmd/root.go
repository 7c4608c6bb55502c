// Package cmd implements dgrpcctl's cobra command tree: a root command
// holding shared flags (data directory, app id, log level) plus one
// subcommand per façade operation exercised by the example.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"go.alderamin.dev/dgrpc"
	"go.alderamin.dev/dgrpc/internal/config"
	"go.alderamin.dev/dgrpc/internal/logger"
	"go.alderamin.dev/dgrpc/internal/paths"
)

// version is set at build time via -ldflags "-X ...cmd.version=...".
// Bare `go build` leaves it at "dev".
var version = "dev"

var (
	flagDataDir  string
	flagAppID    string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:     "dgrpcctl",
	Short:   "Drive a local Discord Rich Presence/RPC client from the terminal",
	Version: version,
	Long: `dgrpcctl connects to a running Discord desktop client over its local
IPC socket (or named pipe on Windows) and exercises go.alderamin.dev/dgrpc's
façade: set a Rich Presence activity, look up a guild or channel, or
subscribe to a push event and print it as it arrives.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory for config.toml/token.json/dgrpc.log (default: OS user config dir)")
	rootCmd.PersistentFlags().StringVar(&flagAppID, "app-id", "", "Discord application id (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "trace, debug, info, warn, error, fail (overrides config)")
}

// Execute runs the root command, exiting the process on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// dataDir resolves the effective data directory: --data-dir if given,
// else paths.DefaultRoot().
func dataDir() (string, error) {
	if flagDataDir != "" {
		return flagDataDir, nil
	}
	return paths.DefaultRoot()
}

// loadConfig loads config.toml from the resolved data directory,
// applies command-line overrides, and wires up logging: a colorized
// tint handler on stderr for interactive feedback, and the library's
// own rotating file handler for anything durable enough to replay
// later. Returns the resolved *config.Config and a cleanup func that
// flushes and closes the file logger.
func loadConfig() (*config.Config, func(), error) {
	dir, err := dataDir()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve data directory: %w", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if flagAppID != "" {
		cfg.Client.AppID = flagAppID
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}

	level := logger.ParseLevel(cfg.Log.Level)

	consoleHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})

	fileLogger, closer, err := logger.NewLogger(paths.DataDir{Root: dir}.Log(), level, cfg.Log.MaxSizeMB)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	slog.SetDefault(slog.New(&fanoutHandler{consoleHandler, fileLogger.Handler()}))

	cleanup := func() { _ = closer.Close() }
	return cfg, cleanup, nil
}

// connectClient loads configuration and dials a [dgrpc.Client], ready
// for use by a subcommand. The caller must invoke teardown when done.
func connectClient(ctx context.Context) (*dgrpc.Client, *config.Config, func(), error) {
	cfg, cleanup, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := dgrpc.NewClient(ctx, cfg.Options())
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("connect: %w", err)
	}

	teardown := func() {
		_ = client.Close()
		cleanup()
	}
	return client, cfg, teardown, nil
}

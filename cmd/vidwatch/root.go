package main

import (
	"fmt"
	"os"

	"github.com/pcormier/vidwatch/internal/config"
	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/pcormier/vidwatch/internal/storage/bolt"
	"github.com/pcormier/vidwatch/internal/storage/redis"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vidwatch",
	Short: "vidwatch - Local watch-time tracking engine",
	Long: `vidwatch is a local daemon that turns per-tab video playback events
into accumulated watch-time and watch-count statistics. It keeps live
session state per (tab, video) pair, folds validated time deltas into
durable daily aggregates and serves live tab stats, summaries and
exports over a localhost API. Tracked data never leaves the host.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to server command when no subcommand is provided
		return runServer(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/vidwatch/config.yaml", "Path to configuration file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// openStorage opens the configured storage backend. A failed open is
// fatal to the calling command.
func openStorage(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "redis":
		return redis.Open(cfg.Storage.Redis, cfg.EventRetention())
	default:
		return bolt.Open(cfg.Storage.Path, cfg.EventRetention())
	}
}

// statCategories converts the configured bucket names.
func statCategories(cfg *config.Config) []storage.Category {
	categories := make([]storage.Category, 0, len(cfg.Tracking.StatCategories))
	for _, name := range cfg.Tracking.StatCategories {
		categories = append(categories, storage.Category(name))
	}
	return categories
}

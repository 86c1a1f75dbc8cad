package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pcormier/vidwatch/internal/api"
	"github.com/pcormier/vidwatch/internal/config"
	"github.com/pcormier/vidwatch/internal/metrics"
	"github.com/pcormier/vidwatch/internal/stats"
	"github.com/pcormier/vidwatch/internal/systemd"
	"github.com/pcormier/vidwatch/internal/track"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the vidwatch daemon",
	Long:  `Start the vidwatch daemon with the event ingestion API, stats push stream and metrics endpoints.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting vidwatch")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Initialize storage; expired raw events are purged here.
	store, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Int("retention_days", cfg.Tracking.EventRetentionDays).
		Msg("Storage initialized")

	loc := cfg.Location()
	categories := statCategories(cfg)

	// Initialize Session Tracker
	tracker := track.NewTracker(store, track.Config{
		MaxDeltaMs:   cfg.Tracking.MaxDeltaMs,
		TickInterval: cfg.TickInterval(),
		Location:     loc,
	}, nil, logger)

	// Projections and the stats push hub
	projector := stats.NewProjector(store, tracker, categories, track.RealClock{}, loc)
	summarizer := stats.NewSummarizer(store, categories, track.RealClock{}, loc)
	exporter := stats.NewExporter(store)

	hub := api.NewHub(projector, logger)
	tracker.SetNotifier(hub)
	tracker.Start()

	logger.Info().
		Int64("max_delta_ms", cfg.Tracking.MaxDeltaMs).
		Strs("stat_categories", cfg.Tracking.StatCategories).
		Msg("Session tracker initialized")

	// Initialize API server
	eventsHandler, err := api.NewEventsHandler(tracker, store.Events(), cfg.Tracking.DedupeCacheSize, cfg.Tracking.RecentEventsLimit, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize events handler: %w", err)
	}

	handlers := api.Handlers{
		Events:   eventsHandler,
		Tabs:     api.NewTabsHandler(projector, tracker, hub, logger),
		Query:    api.NewQueryHandler(summarizer, exporter, track.RealClock{}, loc, logger),
		Settings: api.NewSettingsHandler(store.Settings(), logger),
	}

	apiAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.APIPort)
	apiServer := api.NewServer(apiAddr, handlers, logger)
	if sdListeners.API != nil {
		apiServer.SetListener(sdListeners.API)
	}
	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	// Initialize Metrics server
	metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
	metricsServer := metrics.NewServer(metricsAddr, logger)
	if sdListeners.Metrics != nil {
		metricsServer.SetListener(sdListeners.Metrics)
	}
	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	if sdListeners.Activated {
		if err := systemd.NotifyReady(); err != nil {
			logger.Warn().Err(err).Msg("Failed to notify systemd readiness")
		}
	}

	logger.Info().Msg("vidwatch startup complete")
	logger.Info().Msgf("API: http://%s/api", apiAddr)
	logger.Info().Msgf("Metrics: http://%s/metrics", metricsAddr)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info().Msg("Shutdown signal received, gracefully stopping...")

	if sdListeners.Activated {
		_ = systemd.NotifyStopping()
	}

	tracker.Stop()

	if err := apiServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping API server")
	}
	if err := metricsServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping metrics server")
	}

	logger.Info().Msg("vidwatch stopped")
	return nil
}

package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Ingestion metrics
	EventsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidwatch_events_ingested_total",
			Help: "Total tracker events accepted into the raw event store",
		},
		[]string{"type", "platform"},
	)

	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidwatch_events_dropped_total",
			Help: "Tracker events dropped from session processing",
		},
		[]string{"reason"},
	)

	// Session metrics
	SessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidwatch_sessions_started_total",
			Help: "Sessions created by start or navigation events",
		},
	)

	SessionsFinalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidwatch_sessions_finalized_total",
			Help: "Sessions terminated by an end event",
		},
	)

	SessionsReplaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidwatch_sessions_replaced_total",
			Help: "Live sessions flushed and replaced by a new start or navigation",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidwatch_active_sessions",
			Help: "Sessions currently held in the live session map",
		},
	)

	// Accumulation metrics
	WatchTimeAccumulated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidwatch_watch_time_ms_total",
			Help: "Validated watch time folded into daily aggregates, in milliseconds",
		},
		[]string{"platform", "category"},
	)

	InvalidDeltas = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidwatch_invalid_deltas_total",
			Help: "Time-update deltas rejected as zero, negative or above the validity bound",
		},
	)

	// Query metrics
	ExportRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidwatch_export_requests_total",
			Help: "Export requests by format",
		},
		[]string{"format"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsIngested,
		EventsDropped,
		SessionsStarted,
		SessionsFinalized,
		SessionsReplaced,
		ActiveSessions,
		WatchTimeAccumulated,
		InvalidDeltas,
		ExportRequests,
	)
}

// Server exposes /metrics and /health.
type Server struct {
	server   *http.Server
	listener net.Listener
	logger   zerolog.Logger
}

// NewServer creates a metrics server bound to addr.
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop gracefully shuts down the metrics server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

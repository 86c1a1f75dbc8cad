package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Handlers bundles the route handlers the server mounts.
type Handlers struct {
	Events   *EventsHandler
	Tabs     *TabsHandler
	Query    *QueryHandler
	Settings *SettingsHandler
}

// Server is the localhost HTTP boundary between the engine and its
// collaborators (event source, overlay, dashboard).
type Server struct {
	server   *http.Server
	listener net.Listener
	logger   zerolog.Logger
}

// NewServer creates the API server bound to addr.
func NewServer(addr string, handlers Handlers, logger zerolog.Logger) *Server {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/events", handlers.Events.Ingest).Methods(http.MethodPost)
	api.HandleFunc("/events", handlers.Events.ListRecent).Methods(http.MethodGet)

	api.HandleFunc("/tabs/{id}/stats", handlers.Tabs.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/tabs/{id}/stats/stream", handlers.Tabs.StreamStats).Methods(http.MethodGet)
	api.HandleFunc("/tabs/{id}", handlers.Tabs.CloseTab).Methods(http.MethodDelete)

	api.HandleFunc("/summary", handlers.Query.GetSummary).Methods(http.MethodGet)
	api.HandleFunc("/export", handlers.Query.Export).Methods(http.MethodGet)

	api.HandleFunc("/settings", handlers.Settings.List).Methods(http.MethodGet)
	api.HandleFunc("/settings/{key}", handlers.Settings.Get).Methods(http.MethodGet)
	api.HandleFunc("/settings/{key}", handlers.Settings.Put).Methods(http.MethodPut)

	// Unknown commands get a structured error, never a bare 404 page.
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "Unknown command: "+req.Method+" "+req.URL.Path)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed: "+req.Method+" "+req.URL.Path)
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: r,
		},
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting API server")
	go func() {
		var err error
		if s.listener != nil {
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
	return nil
}

// Stop gracefully shuts down the API server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pcormier/vidwatch/internal/stats"
	"github.com/pcormier/vidwatch/internal/track"
	"github.com/rs/zerolog"
)

// TabsHandler serves per-tab projections and tab lifecycle requests.
type TabsHandler struct {
	projector *stats.Projector
	tracker   *track.Tracker
	hub       *Hub
	logger    zerolog.Logger
}

// NewTabsHandler creates a tabs handler.
func NewTabsHandler(projector *stats.Projector, tracker *track.Tracker, hub *Hub, logger zerolog.Logger) *TabsHandler {
	return &TabsHandler{
		projector: projector,
		tracker:   tracker,
		hub:       hub,
		logger:    logger.With().Str("handler", "tabs").Logger(),
	}
}

// GetStats returns the tab's current projection.
func (h *TabsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tabID := mux.Vars(r)["id"]

	snapshot, err := h.projector.Project(ctx, tabID)
	if err != nil {
		h.logger.Error().Err(err).Str("tab_id", tabID).Msg("Failed to project tab stats")
		writeError(w, http.StatusInternalServerError, "Failed to compute tab stats")
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// StreamStats pushes the tab's projection over SSE: one snapshot
// immediately, then one on every change and tick.
func (h *TabsHandler) StreamStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tabID := mux.Vars(r)["id"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, cancel := h.hub.Subscribe(tabID)
	defer cancel()

	snapshot, err := h.projector.Project(ctx, tabID)
	if err == nil {
		writeSSE(w, snapshot)
		flusher.Flush()
	}

	for {
		select {
		case snapshot := <-updates:
			writeSSE(w, snapshot)
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

// CloseTab drops all of the tab's live sessions.
func (h *TabsHandler) CloseTab(w http.ResponseWriter, r *http.Request) {
	tabID := mux.Vars(r)["id"]

	dropped := h.tracker.CloseTab(tabID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tabId":   tabID,
		"dropped": dropped,
	})
}

func writeSSE(w http.ResponseWriter, snapshot stats.TabStats) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: stats\ndata: %s\n\n", data)
}

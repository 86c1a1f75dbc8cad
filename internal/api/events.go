package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pcormier/vidwatch/internal/metrics"
	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/rs/zerolog"
)

// EventSink consumes tracker events for one tab. Satisfied by
// *track.Tracker.
type EventSink interface {
	HandleEvent(ctx context.Context, tabID string, event storage.TrackerEvent) error
}

// IngestRequest is a batch of events observed in one tab.
type IngestRequest struct {
	TabID  string                 `json:"tabId"`
	Events []storage.TrackerEvent `json:"events"`
}

// IngestResult reports the outcome for one event of a batch.
type IngestResult struct {
	EventID string `json:"eventId,omitempty"`
	Status  string `json:"status"` // "accepted", "duplicate" or "error"
	Error   string `json:"error,omitempty"`
}

// IngestResponse summarizes a processed batch.
type IngestResponse struct {
	Accepted int            `json:"accepted"`
	Dropped  int            `json:"dropped"`
	Results  []IngestResult `json:"results"`
}

// EventsHandler handles event ingestion and raw event queries.
type EventsHandler struct {
	tracker     EventSink
	events      storage.EventStore
	dedupe      *lru.Cache[string, struct{}]
	recentLimit int
	logger      zerolog.Logger
}

// NewEventsHandler creates an events handler. dedupeSize bounds the
// cache of recently seen event ids used to drop retried deliveries.
func NewEventsHandler(tracker EventSink, events storage.EventStore, dedupeSize, recentLimit int, logger zerolog.Logger) (*EventsHandler, error) {
	if dedupeSize <= 0 {
		dedupeSize = 4096
	}
	if recentLimit <= 0 {
		recentLimit = 100
	}
	cache, err := lru.New[string, struct{}](dedupeSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &EventsHandler{
		tracker:     tracker,
		events:      events,
		dedupe:      cache,
		recentLimit: recentLimit,
		logger:      logger.With().Str("handler", "events").Logger(),
	}, nil
}

// Ingest accepts a batch of tracker events for one tab. Events are
// processed in request order; each gets its own result so one bad
// event never fails the batch.
func (h *EventsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Events) == 0 {
		writeError(w, http.StatusBadRequest, "Request contains no events")
		return
	}

	resp := IngestResponse{Results: make([]IngestResult, 0, len(req.Events))}
	for _, event := range req.Events {
		result := IngestResult{EventID: event.ID}

		if !event.Type.Valid() {
			result.Status = "error"
			result.Error = fmt.Sprintf("unknown event type %q", event.Type)
			metrics.EventsDropped.WithLabelValues("unknown_type").Inc()
			resp.Dropped++
			resp.Results = append(resp.Results, result)
			continue
		}

		// Only events that arrive with an id can be a retried
		// delivery; events without one always become new records.
		if event.ID != "" {
			if _, seen := h.dedupe.Get(event.ID); seen {
				result.Status = "duplicate"
				metrics.EventsDropped.WithLabelValues("duplicate").Inc()
				resp.Dropped++
				resp.Results = append(resp.Results, result)
				continue
			}
		}

		if err := h.tracker.HandleEvent(ctx, req.TabID, event); err != nil {
			h.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to process event")
			result.Status = "error"
			result.Error = "failed to process event"
			resp.Dropped++
			resp.Results = append(resp.Results, result)
			continue
		}

		// Cache the id only once the event lands, so the retry of a
		// failed delivery is not mistaken for a duplicate.
		if event.ID != "" {
			h.dedupe.Add(event.ID, struct{}{})
		}

		result.Status = "accepted"
		resp.Accepted++
		resp.Results = append(resp.Results, result)
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListRecent returns recent raw events, newest window first bounded by
// the configured limit.
func (h *EventsHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := storage.EventFilter{
		Platform: storage.Platform(query.Get("platform")),
		Category: storage.Category(query.Get("category")),
		Type:     storage.EventType(query.Get("type")),
		Limit:    h.recentLimit,
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 1000 {
			filter.Limit = limit
		}
	}
	if sinceStr := query.Get("since"); sinceStr != "" {
		if since, err := strconv.ParseInt(sinceStr, 10, 64); err == nil && since > 0 {
			filter.SinceMs = since
		}
	}

	events, err := h.events.List(ctx, filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list events")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pcormier/vidwatch/internal/stats"
	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/pcormier/vidwatch/internal/track"
	"github.com/rs/zerolog"
)

// QueryHandler serves the global summary and export requests.
type QueryHandler struct {
	summarizer *stats.Summarizer
	exporter   *stats.Exporter
	clock      track.Clock
	loc        *time.Location
	logger     zerolog.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(summarizer *stats.Summarizer, exporter *stats.Exporter, clock track.Clock, loc *time.Location, logger zerolog.Logger) *QueryHandler {
	if clock == nil {
		clock = track.RealClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &QueryHandler{
		summarizer: summarizer,
		exporter:   exporter,
		clock:      clock,
		loc:        loc,
		logger:     logger.With().Str("handler", "query").Logger(),
	}
}

// GetSummary returns the global rollups.
func (h *QueryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.summarizer.Summarize(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build summary")
		writeError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Export streams the requested range in the requested format. The
// range defaults to the last 30 days when unspecified.
func (h *QueryHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	format := query.Get("format")
	if format == "" {
		format = stats.FormatCSV
	}

	now := h.clock.Now().In(h.loc)
	start := query.Get("start")
	if start == "" {
		start = now.AddDate(0, 0, -29).Format(storage.DateLayout)
	}
	end := query.Get("end")
	if end == "" {
		end = now.Format(storage.DateLayout)
	}

	payload, contentType, err := h.exporter.Export(ctx, format, start, end)
	if err != nil {
		// Export errors are phrased for humans; pass them through.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if format == stats.FormatCSV {
		filename := fmt.Sprintf("vidwatch-%s-%s.csv", start, end)
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

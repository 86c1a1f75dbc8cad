package api

import (
	"context"
	"sync"
	"time"

	"github.com/pcormier/vidwatch/internal/stats"
	"github.com/rs/zerolog"
)

// Hub fans projected tab stats out to stream subscribers. It
// implements track.Notifier: the tracker reports changed tabs, the
// hub recomputes the projection and pushes it.
type Hub struct {
	projector *stats.Projector
	logger    zerolog.Logger
	mu        sync.Mutex
	subs      map[string]map[chan stats.TabStats]struct{}
}

// NewHub creates a stats push hub.
func NewHub(projector *stats.Projector, logger zerolog.Logger) *Hub {
	return &Hub{
		projector: projector,
		logger:    logger.With().Str("component", "stats-hub").Logger(),
		subs:      make(map[string]map[chan stats.TabStats]struct{}),
	}
}

// TabChanged recomputes the tab's projection and broadcasts it to the
// tab's subscribers. Slow subscribers miss snapshots rather than
// blocking ingestion.
func (h *Hub) TabChanged(tabID string) {
	h.mu.Lock()
	listeners := len(h.subs[tabID])
	h.mu.Unlock()
	if listeners == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	snapshot, err := h.projector.Project(ctx, tabID)
	if err != nil {
		h.logger.Error().Err(err).Str("tab_id", tabID).Msg("Failed to project tab stats")
		return
	}

	h.mu.Lock()
	for ch := range h.subs[tabID] {
		select {
		case ch <- snapshot:
		default:
		}
	}
	h.mu.Unlock()
}

// SubscribedTabs returns the ids of tabs with at least one listener,
// so the tracker's tick loop can push to idle tabs too.
func (h *Hub) SubscribedTabs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	tabs := make([]string, 0, len(h.subs))
	for tab := range h.subs {
		tabs = append(tabs, tab)
	}
	return tabs
}

// Subscribe registers a listener for one tab's stats pushes. The
// returned cancel func must be called when the listener goes away.
func (h *Hub) Subscribe(tabID string) (<-chan stats.TabStats, func()) {
	ch := make(chan stats.TabStats, 8)

	h.mu.Lock()
	if h.subs[tabID] == nil {
		h.subs[tabID] = make(map[chan stats.TabStats]struct{})
	}
	h.subs[tabID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[tabID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, tabID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

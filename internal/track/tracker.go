package track

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pcormier/vidwatch/internal/metrics"
	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/rs/zerolog"
)

// DefaultTickInterval is the cadence at which tab stats are pushed to
// listeners between events.
const DefaultTickInterval = time.Second

// Notifier receives the ids of tabs whose projected stats changed.
// Pushes happen after every session-progressing event and on each tick.
type Notifier interface {
	TabChanged(tabID string)
}

// TabLister is implemented by notifiers that know which tabs have
// listeners attached. The tick loop pushes to those tabs as well as
// the live ones, so a subscriber on an idle tab still sees projection
// changes caused by other tabs or day rollover.
type TabLister interface {
	SubscribedTabs() []string
}

// Config holds tracker configuration
type Config struct {
	MaxDeltaMs   int64
	TickInterval time.Duration
	Location     *time.Location
}

// Tracker owns the live session map. It converts tracker events into
// validated watch-time deltas, folds them into daily aggregates and
// counts each session at most once.
type Tracker struct {
	store        storage.Store
	sessions     map[string]*Session // key: tabID::videoID
	notifier     Notifier
	maxDeltaMs   int64
	tickInterval time.Duration
	loc          *time.Location
	logger       zerolog.Logger
	stopChan     chan struct{}
	stopOnce     sync.Once
	mu           sync.RWMutex
}

// NewTracker creates a new session tracker. The notifier may be nil
// when no listener cares about stats pushes.
func NewTracker(store storage.Store, config Config, notifier Notifier, logger zerolog.Logger) *Tracker {
	if config.MaxDeltaMs == 0 {
		config.MaxDeltaMs = DefaultMaxDeltaMs
	}
	if config.TickInterval == 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.Location == nil {
		config.Location = time.UTC
	}

	return &Tracker{
		store:        store,
		sessions:     make(map[string]*Session),
		notifier:     notifier,
		maxDeltaMs:   config.MaxDeltaMs,
		tickInterval: config.TickInterval,
		loc:          config.Location,
		logger:       logger.With().Str("component", "tracker").Logger(),
		stopChan:     make(chan struct{}),
	}
}

// SetNotifier wires the stats push target. Must be called before Start.
func (t *Tracker) SetNotifier(n Notifier) {
	t.notifier = n
}

// HandleEvent processes one tracker event for a tab. The raw event is
// persisted unconditionally before session dispatch; session-level
// problems (missing ids, unknown sessions, invalid deltas) are treated
// as expected input noise, never as errors.
func (t *Tracker) HandleEvent(ctx context.Context, tabID string, event storage.TrackerEvent) error {
	if event.Timestamp > 0 {
		stored, err := t.store.Events().Add(ctx, event)
		if err != nil {
			t.logger.Error().Err(err).
				Str("type", string(event.Type)).
				Msg("Failed to persist raw event")
		} else {
			event = stored
			metrics.EventsIngested.WithLabelValues(string(event.Type), string(event.Platform)).Inc()
		}
	}

	if tabID == "" || event.Meta.VideoID == "" {
		metrics.EventsDropped.WithLabelValues("missing_key").Inc()
		t.logger.Debug().
			Str("tab_id", tabID).
			Str("type", string(event.Type)).
			Msg("Event without tab or video id, skipping session processing")
		return nil
	}

	key := sessionKey(tabID, event.Meta.VideoID)

	t.mu.Lock()
	progressed := false

	switch event.Type {
	case storage.EventStart, storage.EventNavigation:
		if prev, ok := t.sessions[key]; ok {
			// Flush-then-replace: fold any in-flight time into the
			// aggregate before discarding the old session.
			t.finalize(ctx, key, prev, event.Timestamp)
			metrics.SessionsReplaced.Inc()
		}
		t.sessions[key] = &Session{
			TabID:          tabID,
			VideoID:        event.Meta.VideoID,
			Platform:       event.Platform,
			Category:       event.Category,
			StartTime:      event.Timestamp,
			LastUpdateTime: event.Timestamp,
		}
		metrics.SessionsStarted.Inc()
		metrics.ActiveSessions.Set(float64(len(t.sessions)))
		progressed = true

		t.logger.Debug().
			Str("tab_id", tabID).
			Str("video_id", event.Meta.VideoID).
			Str("platform", string(event.Platform)).
			Msg("Session started")

	case storage.EventTimeUpdate, storage.EventPause:
		session, ok := t.sessions[key]
		if !ok {
			// An update for an unknown session is dropped, not an error.
			metrics.EventsDropped.WithLabelValues("unknown_session").Inc()
			break
		}
		progressed = t.applyDelta(ctx, session, event.Timestamp)

	case storage.EventEnd:
		session, ok := t.sessions[key]
		if !ok {
			metrics.EventsDropped.WithLabelValues("unknown_session").Inc()
			break
		}
		t.finalize(ctx, key, session, event.Timestamp)
		metrics.SessionsFinalized.Inc()
		metrics.ActiveSessions.Set(float64(len(t.sessions)))
		progressed = true

	default:
		metrics.EventsDropped.WithLabelValues("unknown_type").Inc()
	}

	t.mu.Unlock()

	if progressed && t.notifier != nil {
		t.notifier.TabChanged(tabID)
	}
	return nil
}

// applyDelta validates the gap since the last good timestamp and, when
// valid, accumulates it in the session and today's aggregate. Invalid
// deltas mutate nothing, so the next tick is measured against the last
// good timestamp. Caller holds the lock.
func (t *Tracker) applyDelta(ctx context.Context, session *Session, timestampMs int64) bool {
	delta := timestampMs - session.LastUpdateTime
	if !ValidDelta(delta, t.maxDeltaMs) {
		metrics.InvalidDeltas.Inc()
		t.logger.Debug().
			Str("tab_id", session.TabID).
			Str("video_id", session.VideoID).
			Int64("delta_ms", delta).
			Msg("Dropping invalid time delta")
		return false
	}

	session.TotalWatchMs += delta
	session.LastUpdateTime = timestampMs

	date := DateKey(timestampMs, t.loc)
	if err := t.store.Aggregates().Increment(ctx, date, session.Platform, session.Category, delta, 0); err != nil {
		t.logger.Error().Err(err).
			Str("date", date).
			Str("platform", string(session.Platform)).
			Msg("Failed to increment daily watch time")
	} else {
		metrics.WatchTimeAccumulated.WithLabelValues(string(session.Platform), string(session.Category)).Add(float64(delta))
	}
	return true
}

// finalize runs the terminal path: a last delta flush, the
// at-most-once count, then removal from the live map. Caller holds
// the lock.
func (t *Tracker) finalize(ctx context.Context, key string, session *Session, timestampMs int64) {
	t.applyDelta(ctx, session, timestampMs)

	if !session.Counted {
		date := DateKey(timestampMs, t.loc)
		if err := t.store.Aggregates().Increment(ctx, date, session.Platform, session.Category, 0, 1); err != nil {
			t.logger.Error().Err(err).
				Str("date", date).
				Str("platform", string(session.Platform)).
				Msg("Failed to increment daily watch count")
		} else {
			session.Counted = true
		}
	}

	delete(t.sessions, key)

	t.logger.Debug().
		Str("tab_id", session.TabID).
		Str("video_id", session.VideoID).
		Int64("total_watch_ms", session.TotalWatchMs).
		Msg("Session finalized")
}

// CloseTab drops every session belonging to the tab without flushing.
// Unflushed time since the last valid delta is lost, bounded by one
// client update interval.
func (t *Tracker) CloseTab(tabID string) int {
	prefix := tabID + "::"

	t.mu.Lock()
	dropped := 0
	for key := range t.sessions {
		if strings.HasPrefix(key, prefix) {
			delete(t.sessions, key)
			dropped++
		}
	}
	metrics.ActiveSessions.Set(float64(len(t.sessions)))
	t.mu.Unlock()

	if dropped > 0 {
		t.logger.Info().
			Str("tab_id", tabID).
			Int("sessions", dropped).
			Msg("Tab closed, sessions dropped")
		if t.notifier != nil {
			t.notifier.TabChanged(tabID)
		}
	}
	return dropped
}

// SessionsForTab returns snapshots of the tab's live sessions.
func (t *Tracker) SessionsForTab(tabID string) []SessionSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshots := make([]SessionSnapshot, 0)
	for _, session := range t.sessions {
		if session.TabID == tabID {
			snapshots = append(snapshots, session.snapshot())
		}
	}
	return snapshots
}

// ActiveSessionCount returns the size of the live session map.
func (t *Tracker) ActiveSessionCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// liveTabs returns the distinct tab ids with at least one session.
func (t *Tracker) liveTabs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[string]struct{})
	tabs := make([]string, 0)
	for key := range t.sessions {
		tab := keyTab(key)
		if _, ok := seen[tab]; ok {
			continue
		}
		seen[tab] = struct{}{}
		tabs = append(tabs, tab)
	}
	return tabs
}

// tickTabs returns the tabs to push on a tick: every tab with a live
// session plus every tab a listener subscribed to.
func (t *Tracker) tickTabs() []string {
	tabs := t.liveTabs()

	lister, ok := t.notifier.(TabLister)
	if !ok {
		return tabs
	}

	seen := make(map[string]struct{}, len(tabs))
	for _, tab := range tabs {
		seen[tab] = struct{}{}
	}
	for _, tab := range lister.SubscribedTabs() {
		if _, ok := seen[tab]; ok {
			continue
		}
		tabs = append(tabs, tab)
	}
	return tabs
}

// Start begins the periodic stats broadcast.
func (t *Tracker) Start() {
	go t.run()
	t.logger.Info().Dur("interval", t.tickInterval).Msg("Stats broadcast started")
}

// Stop halts the periodic stats broadcast.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
	t.logger.Info().Msg("Stats broadcast stopped")
}

func (t *Tracker) run() {
	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if t.notifier == nil {
				continue
			}
			for _, tab := range t.tickTabs() {
				t.notifier.TabChanged(tab)
			}
		case <-t.stopChan:
			return
		}
	}
}

package stats

import (
	"context"
	"time"

	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/pcormier/vidwatch/internal/track"
)

// Projector combines today's persisted aggregates with in-flight
// session state into a live per-tab snapshot. It owns no state and
// recomputes on every call.
type Projector struct {
	store      storage.Store
	tracker    *track.Tracker
	categories []storage.Category
	clock      track.Clock
	loc        *time.Location
}

// NewProjector creates a projector over the tracked category set.
func NewProjector(store storage.Store, tracker *track.Tracker, categories []storage.Category, clock track.Clock, loc *time.Location) *Projector {
	if clock == nil {
		clock = track.RealClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Projector{
		store:      store,
		tracker:    tracker,
		categories: categories,
		clock:      clock,
		loc:        loc,
	}
}

// Project builds the tab's stats: today's persisted aggregates across
// all platforms, plus the tab's live sessions. A live session always
// contributes its accumulated watch time; it contributes a count only
// while uncounted, so a landed end never double counts.
func (p *Projector) Project(ctx context.Context, tabID string) (TabStats, error) {
	stats := TabStats{
		TabID:   tabID,
		Buckets: NewBucketSet(p.categories),
	}

	today := p.clock.Now().In(p.loc).Format(storage.DateLayout)
	aggregates, err := p.store.Aggregates().ListDate(ctx, today)
	if err != nil {
		return stats, err
	}
	for _, agg := range aggregates {
		stats.Buckets.Add(agg)
	}

	for _, session := range p.tracker.SessionsForTab(tabID) {
		bucket, ok := stats.Buckets[session.Category]
		if !ok {
			continue
		}
		bucket.WatchMs += session.TotalWatchMs
		if !session.Counted {
			bucket.Count++
		}
		stats.Buckets[session.Category] = bucket
	}

	return stats, nil
}

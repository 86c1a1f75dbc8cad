package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/pcormier/vidwatch/internal/storage/bolt"
	"github.com/pcormier/vidwatch/internal/track"
	"github.com/rs/zerolog"
)

var (
	testNow    = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	testBase   = testNow.UnixMilli()
	categories = []storage.Category{storage.CategoryShorts, storage.CategoryRegular}
)

const testDate = "2026-03-15"

func setupProjector(t *testing.T) (storage.Store, *track.Tracker, *Projector) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vidwatch.db")
	store, err := bolt.Open(path, 0)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	tracker := track.NewTracker(store, track.Config{Location: time.UTC}, nil, zerolog.Nop())
	clock := &track.TestClock{CurrentTime: testNow}
	projector := NewProjector(store, tracker, categories, clock, time.UTC)
	return store, tracker, projector
}

func testEvent(typ storage.EventType, category storage.Category, videoID string, timestampMs int64) storage.TrackerEvent {
	return storage.TrackerEvent{
		Timestamp: timestampMs,
		Platform:  storage.PlatformYouTube,
		Category:  category,
		Type:      typ,
		Meta:      storage.EventMeta{VideoID: videoID},
	}
}

func TestProjectorZeroState(t *testing.T) {
	_, _, projector := setupProjector(t)

	snapshot, err := projector.Project(context.Background(), "tab-1")
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if snapshot.TabID != "tab-1" {
		t.Errorf("expected tab id tab-1, got %q", snapshot.TabID)
	}
	if len(snapshot.Buckets) != 2 {
		t.Fatalf("expected both category buckets present, got %d", len(snapshot.Buckets))
	}
	for category, bucket := range snapshot.Buckets {
		if bucket.Count != 0 || bucket.WatchMs != 0 {
			t.Errorf("expected zero bucket for %s, got %+v", category, bucket)
		}
	}
}

func TestProjectorLiveSessionDropsToPersistedAfterEnd(t *testing.T) {
	_, tracker, projector := setupProjector(t)
	ctx := context.Background()

	if err := tracker.HandleEvent(ctx, "tab-1", testEvent(storage.EventStart, storage.CategoryRegular, "vid-1", testBase)); err != nil {
		t.Fatalf("handle start: %v", err)
	}
	if err := tracker.HandleEvent(ctx, "tab-1", testEvent(storage.EventTimeUpdate, storage.CategoryRegular, "vid-1", testBase+1000)); err != nil {
		t.Fatalf("handle time_update: %v", err)
	}

	// While live the session contributes its running total on top of
	// the persisted aggregate, and one uncounted count.
	snapshot, err := projector.Project(ctx, "tab-1")
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	live := snapshot.Buckets[storage.CategoryRegular]
	if live.WatchMs != 2000 {
		t.Errorf("expected 2000ms while live (1000 persisted + 1000 in-flight), got %d", live.WatchMs)
	}
	if live.Count != 1 {
		t.Errorf("expected uncounted live session projected as 1, got %d", live.Count)
	}

	if err := tracker.HandleEvent(ctx, "tab-1", testEvent(storage.EventEnd, storage.CategoryRegular, "vid-1", testBase+1500)); err != nil {
		t.Fatalf("handle end: %v", err)
	}

	// After end only the persisted aggregate remains.
	snapshot, err = projector.Project(ctx, "tab-1")
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	landed := snapshot.Buckets[storage.CategoryRegular]
	if landed.WatchMs != 1500 {
		t.Errorf("expected 1500ms persisted after end, got %d", landed.WatchMs)
	}
	if landed.Count != 1 {
		t.Errorf("expected count 1 after end, got %d", landed.Count)
	}
}

func TestProjectorSeesOtherTabsPersistedTimeOnly(t *testing.T) {
	store, tracker, projector := setupProjector(t)
	ctx := context.Background()

	// Persisted activity from elsewhere today.
	if err := store.Aggregates().Increment(ctx, testDate, storage.PlatformTikTok, storage.CategoryShorts, 10000, 3); err != nil {
		t.Fatalf("seed aggregate: %v", err)
	}

	// A live session on another tab.
	if err := tracker.HandleEvent(ctx, "tab-2", testEvent(storage.EventStart, storage.CategoryRegular, "vid-9", testBase)); err != nil {
		t.Fatalf("handle start: %v", err)
	}

	snapshot, err := projector.Project(ctx, "tab-1")
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	// Today's aggregates fold in across all platforms; the other
	// tab's live-only state does not.
	shorts := snapshot.Buckets[storage.CategoryShorts]
	if shorts.WatchMs != 10000 || shorts.Count != 3 {
		t.Errorf("expected persisted shorts 10000ms/3, got %+v", shorts)
	}
	regular := snapshot.Buckets[storage.CategoryRegular]
	if regular.WatchMs != 0 || regular.Count != 0 {
		t.Errorf("expected other tab's live session excluded, got %+v", regular)
	}
}

func TestProjectorIgnoresUntrackedCategories(t *testing.T) {
	store, _, projector := setupProjector(t)
	ctx := context.Background()

	if err := store.Aggregates().Increment(ctx, testDate, storage.PlatformYouTube, storage.CategoryLive, 5000, 1); err != nil {
		t.Fatalf("seed aggregate: %v", err)
	}

	snapshot, err := projector.Project(ctx, "tab-1")
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if _, ok := snapshot.Buckets[storage.CategoryLive]; ok {
		t.Error("expected untracked category absent from projection")
	}
	for category, bucket := range snapshot.Buckets {
		if bucket.WatchMs != 0 {
			t.Errorf("expected %s untouched by untracked record, got %+v", category, bucket)
		}
	}
}

package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pcormier/vidwatch/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vidwatch.db")
	store, err := Open(path, 0)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEventStoreAddAssignsID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	event := storage.TrackerEvent{
		Timestamp: time.Now().UnixMilli(),
		Platform:  storage.PlatformYouTube,
		Category:  storage.CategoryShorts,
		Type:      storage.EventStart,
		Meta:      storage.EventMeta{VideoID: "vid-1"},
	}

	first, err := store.Events().Add(ctx, event)
	if err != nil {
		t.Fatalf("add event: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected assigned event id")
	}

	// A second add of the same id-less payload is a new record, not a
	// replay.
	second, err := store.Events().Add(ctx, event)
	if err != nil {
		t.Fatalf("add event again: %v", err)
	}
	if second.ID == first.ID {
		t.Error("expected distinct ids for id-less adds")
	}

	events, err := store.Events().List(ctx, storage.EventFilter{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 stored events, got %d", len(events))
	}
}

func TestEventStoreKeepsProvidedID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	event := storage.TrackerEvent{
		ID:        "evt-client-7",
		Timestamp: time.Now().UnixMilli(),
		Platform:  storage.PlatformTikTok,
		Category:  storage.CategoryShorts,
		Type:      storage.EventTimeUpdate,
		Meta:      storage.EventMeta{VideoID: "vid-1"},
	}

	stored, err := store.Events().Add(ctx, event)
	if err != nil {
		t.Fatalf("add event: %v", err)
	}
	if stored.ID != "evt-client-7" {
		t.Errorf("expected client id preserved, got %q", stored.ID)
	}
}

func TestEventStoreListFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC).UnixMilli()

	seed := []storage.TrackerEvent{
		{Timestamp: base, Platform: storage.PlatformYouTube, Category: storage.CategoryShorts, Type: storage.EventStart, Meta: storage.EventMeta{VideoID: "a"}},
		{Timestamp: base + 1000, Platform: storage.PlatformYouTube, Category: storage.CategoryRegular, Type: storage.EventTimeUpdate, Meta: storage.EventMeta{VideoID: "b"}},
		{Timestamp: base + 2000, Platform: storage.PlatformTikTok, Category: storage.CategoryShorts, Type: storage.EventTimeUpdate, Meta: storage.EventMeta{VideoID: "c"}},
		{Timestamp: base + 3000, Platform: storage.PlatformYouTube, Category: storage.CategoryShorts, Type: storage.EventEnd, Meta: storage.EventMeta{VideoID: "a"}},
	}
	for _, event := range seed {
		if _, err := store.Events().Add(ctx, event); err != nil {
			t.Fatalf("add event: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter storage.EventFilter
		want   int
	}{
		{"no filter", storage.EventFilter{}, 4},
		{"by platform", storage.EventFilter{Platform: storage.PlatformYouTube}, 3},
		{"by category", storage.EventFilter{Category: storage.CategoryShorts}, 3},
		{"by type", storage.EventFilter{Type: storage.EventTimeUpdate}, 2},
		{"since", storage.EventFilter{SinceMs: base + 2000}, 2},
		{"until", storage.EventFilter{UntilMs: base + 2000}, 2},
		{"limit", storage.EventFilter{Limit: 2}, 2},
		{"platform and type", storage.EventFilter{Platform: storage.PlatformYouTube, Type: storage.EventTimeUpdate}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := store.Events().List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list events: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("expected %d events, got %d", tt.want, len(events))
			}
		})
	}
}

func TestEventStoreDeleteBefore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	old := storage.TrackerEvent{
		Timestamp: now.Add(-40 * 24 * time.Hour).UnixMilli(),
		Platform:  storage.PlatformYouTube,
		Category:  storage.CategoryShorts,
		Type:      storage.EventStart,
		Meta:      storage.EventMeta{VideoID: "old"},
	}
	fresh := storage.TrackerEvent{
		Timestamp: now.UnixMilli(),
		Platform:  storage.PlatformYouTube,
		Category:  storage.CategoryShorts,
		Type:      storage.EventStart,
		Meta:      storage.EventMeta{VideoID: "fresh"},
	}
	if _, err := store.Events().Add(ctx, old); err != nil {
		t.Fatalf("add old event: %v", err)
	}
	if _, err := store.Events().Add(ctx, fresh); err != nil {
		t.Fatalf("add fresh event: %v", err)
	}

	deleted, err := store.Events().DeleteBefore(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted event, got %d", deleted)
	}

	events, err := store.Events().List(ctx, storage.EventFilter{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].Meta.VideoID != "fresh" {
		t.Errorf("expected only the fresh event to survive, got %v", events)
	}
}

func TestOpenPurgesExpiredEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidwatch.db")

	store, err := Open(path, 0)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	old := storage.TrackerEvent{
		Timestamp: time.Now().Add(-40 * 24 * time.Hour).UnixMilli(),
		Platform:  storage.PlatformYouTube,
		Category:  storage.CategoryShorts,
		Type:      storage.EventStart,
		Meta:      storage.EventMeta{VideoID: "old"},
	}
	if _, err := store.Events().Add(context.Background(), old); err != nil {
		t.Fatalf("add old event: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Reopening with a 30 day retention sweeps the stale event.
	store, err = Open(path, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = store.Close() }()

	events, err := store.Events().List(context.Background(), storage.EventFilter{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected expired events purged at open, got %d", len(events))
	}
}

func TestAggregateStoreIncrement(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	aggregates := store.Aggregates()
	date := "2026-03-15"

	if _, err := aggregates.Get(ctx, date, storage.PlatformYouTube, storage.CategoryShorts); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing aggregate, got %v", err)
	}

	if err := aggregates.Increment(ctx, date, storage.PlatformYouTube, storage.CategoryShorts, 1500, 0); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := aggregates.Increment(ctx, date, storage.PlatformYouTube, storage.CategoryShorts, 500, 1); err != nil {
		t.Fatalf("increment: %v", err)
	}

	agg, err := aggregates.Get(ctx, date, storage.PlatformYouTube, storage.CategoryShorts)
	if err != nil {
		t.Fatalf("get aggregate: %v", err)
	}
	if agg.WatchMs != 2000 {
		t.Errorf("expected 2000ms, got %d", agg.WatchMs)
	}
	if agg.Count != 1 {
		t.Errorf("expected count 1, got %d", agg.Count)
	}
	if agg.Date != date || agg.Platform != storage.PlatformYouTube || agg.Category != storage.CategoryShorts {
		t.Errorf("unexpected aggregate identity: %+v", agg)
	}
}

func TestAggregateStoreKeysAreIndependent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	aggregates := store.Aggregates()
	date := "2026-03-15"

	if err := aggregates.Increment(ctx, date, storage.PlatformYouTube, storage.CategoryShorts, 1000, 1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := aggregates.Increment(ctx, date, storage.PlatformYouTube, storage.CategoryRegular, 2000, 1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := aggregates.Increment(ctx, date, storage.PlatformTikTok, storage.CategoryShorts, 3000, 1); err != nil {
		t.Fatalf("increment: %v", err)
	}

	daily, err := aggregates.ListDate(ctx, date)
	if err != nil {
		t.Fatalf("list date: %v", err)
	}
	if len(daily) != 3 {
		t.Fatalf("expected 3 aggregates for the day, got %d", len(daily))
	}

	agg, err := aggregates.Get(ctx, date, storage.PlatformTikTok, storage.CategoryShorts)
	if err != nil {
		t.Fatalf("get aggregate: %v", err)
	}
	if agg.WatchMs != 3000 {
		t.Errorf("expected tiktok shorts untouched by other keys, got %d", agg.WatchMs)
	}
}

func TestAggregateStoreListRange(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	aggregates := store.Aggregates()

	days := []string{"2026-03-10", "2026-03-12", "2026-03-15", "2026-03-20"}
	for _, date := range days {
		if err := aggregates.Increment(ctx, date, storage.PlatformYouTube, storage.CategoryShorts, 1000, 1); err != nil {
			t.Fatalf("increment %s: %v", date, err)
		}
	}

	// Range bounds are inclusive on both ends.
	records, err := aggregates.ListRange(ctx, "2026-03-12", "2026-03-15")
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records in range, got %d", len(records))
	}
	for _, record := range records {
		if record.Date < "2026-03-12" || record.Date > "2026-03-15" {
			t.Errorf("record %s outside range", record.Date)
		}
	}

	empty, err := aggregates.ListRange(ctx, "2025-01-01", "2025-01-31")
	if err != nil {
		t.Fatalf("list empty range: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty range, got %d records", len(empty))
	}
}

func TestSettingStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	settings := store.Settings()

	if _, err := settings.Get(ctx, "overlay.position"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing setting, got %v", err)
	}

	if err := settings.Set(ctx, "overlay.position", "bottom-right"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	if err := settings.Set(ctx, "overlay.enabled", "true"); err != nil {
		t.Fatalf("set setting: %v", err)
	}

	value, err := settings.Get(ctx, "overlay.position")
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if value != "bottom-right" {
		t.Errorf("expected bottom-right, got %q", value)
	}

	// Overwrite wins.
	if err := settings.Set(ctx, "overlay.position", "top-left"); err != nil {
		t.Fatalf("overwrite setting: %v", err)
	}
	value, _ = settings.Get(ctx, "overlay.position")
	if value != "top-left" {
		t.Errorf("expected top-left after overwrite, got %q", value)
	}

	all, err := settings.All(ctx)
	if err != nil {
		t.Fatalf("list settings: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 settings, got %d", len(all))
	}
}

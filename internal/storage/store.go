package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store is the root storage interface. Three collections back the
// engine: raw events (append-only, 30-day rolling retention), daily
// aggregates (keyed, unbounded) and settings (keyed, unbounded).
type Store interface {
	Close() error
	Events() EventStore
	Aggregates() AggregateStore
	Settings() SettingStore
}

// EventStore manages the append-only raw event collection.
type EventStore interface {
	// Add appends an event, assigning an id if missing, and returns
	// the stored record. Stored events are never updated.
	Add(ctx context.Context, event TrackerEvent) (TrackerEvent, error)
	List(ctx context.Context, filter EventFilter) ([]TrackerEvent, error)
	// DeleteBefore purges events observed before cutoff and reports
	// how many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// AggregateStore manages daily aggregates keyed by
// date::platform::category. Increment must be atomic per composite
// key across concurrent callers.
type AggregateStore interface {
	Get(ctx context.Context, date string, platform Platform, category Category) (*DailyAggregate, error)
	// Increment creates the record with a zero baseline if absent,
	// then adds the deltas. Concurrent increments on the same key
	// must not lose updates.
	Increment(ctx context.Context, date string, platform Platform, category Category, watchMsDelta, countDelta int64) error
	// ListDate returns all aggregates for one calendar day.
	ListDate(ctx context.Context, date string) ([]DailyAggregate, error)
	// ListRange returns all aggregates with startDate <= date <= endDate,
	// in no particular order. Callers re-aggregate.
	ListRange(ctx context.Context, startDate, endDate string) ([]DailyAggregate, error)
}

// SettingStore is a plain key/value store for engine settings.
type SettingStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}

package track

import (
	"time"

	"github.com/pcormier/vidwatch/internal/storage"
)

// DefaultMaxDeltaMs is the inclusive upper bound on an accepted
// time-update gap. Larger gaps mean a backgrounded tab, clock skew or
// missed heartbeats, not genuine watch time.
const DefaultMaxDeltaMs = 60000

// ValidDelta reports whether a time-update gap counts as genuine
// elapsed watch time: strictly positive, at most maxMs.
func ValidDelta(deltaMs, maxMs int64) bool {
	return deltaMs > 0 && deltaMs <= maxMs
}

// DateKey derives the calendar-day aggregate key for a wall-clock
// millisecond timestamp in the process-wide location.
func DateKey(timestampMs int64, loc *time.Location) string {
	return time.UnixMilli(timestampMs).In(loc).Format(storage.DateLayout)
}

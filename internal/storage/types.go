package storage

// Platform identifies the site a video was watched on.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformUnknown   Platform = "unknown"
)

// Category classifies the kind of video being watched.
type Category string

const (
	CategoryShorts  Category = "shorts"
	CategoryRegular Category = "regular"
	CategoryLive    Category = "live"
	CategoryUnknown Category = "unknown"
)

// EventType is the kind of playback occurrence a page reported.
type EventType string

const (
	EventStart      EventType = "start"
	EventPause      EventType = "pause"
	EventTimeUpdate EventType = "time_update"
	EventEnd        EventType = "end"
	EventNavigation EventType = "navigation"
)

// Valid reports whether the event type is one the engine understands.
// Unknown types are rejected at the API boundary with a structured
// error rather than failing JSON decoding.
func (t EventType) Valid() bool {
	switch t {
	case EventStart, EventPause, EventTimeUpdate, EventEnd, EventNavigation:
		return true
	}
	return false
}

// EventMeta carries optional page-provided identifiers.
type EventMeta struct {
	VideoID string `json:"videoId,omitempty"`
}

// TrackerEvent is one observed playback occurrence. Immutable once
// stored; the raw event collection is append-only.
type TrackerEvent struct {
	ID          string    `json:"eventId"`
	Timestamp   int64     `json:"timestamp"` // wall-clock milliseconds
	Platform    Platform  `json:"platform"`
	Category    Category  `json:"category"`
	Type        EventType `json:"type"`
	CurrentTime float64   `json:"currentTime,omitempty"` // player position, seconds
	Duration    float64   `json:"duration,omitempty"`    // video length, seconds
	Meta        EventMeta `json:"meta"`
}

// DailyAggregate accumulates watch time and watch count for one
// calendar day, platform and category. WatchMs and Count only ever
// increase; there is no decrement operation.
type DailyAggregate struct {
	Date     string   `json:"date"` // YYYY-MM-DD
	Platform Platform `json:"platform"`
	Category Category `json:"category"`
	WatchMs  int64    `json:"watchMs"`
	Count    int64    `json:"count"`
}

// Key returns the composite aggregate key.
func (a DailyAggregate) Key() string {
	return AggregateKey(a.Date, a.Platform, a.Category)
}

// AggregateKey builds the date::platform::category composite key.
func AggregateKey(date string, platform Platform, category Category) string {
	return date + "::" + string(platform) + "::" + string(category)
}

// EventFilter defines criteria for querying raw events.
type EventFilter struct {
	Platform Platform
	Category Category
	Type     EventType
	SinceMs  int64 // inclusive lower bound on Timestamp, 0 = unbounded
	UntilMs  int64 // exclusive upper bound on Timestamp, 0 = unbounded
	Limit    int
}

// Match reports whether an event satisfies the filter. Limit is
// applied by the store, not here.
func (f EventFilter) Match(e TrackerEvent) bool {
	if f.Platform != "" && e.Platform != f.Platform {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.SinceMs > 0 && e.Timestamp < f.SinceMs {
		return false
	}
	if f.UntilMs > 0 && e.Timestamp >= f.UntilMs {
		return false
	}
	return true
}

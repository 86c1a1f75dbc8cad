package track

import (
	"testing"
	"time"
)

func TestValidDelta(t *testing.T) {
	tests := []struct {
		name  string
		delta int64
		max   int64
		want  bool
	}{
		{"zero delta", 0, DefaultMaxDeltaMs, false},
		{"negative delta", -500, DefaultMaxDeltaMs, false},
		{"smallest valid delta", 1, DefaultMaxDeltaMs, true},
		{"typical tick", 1000, DefaultMaxDeltaMs, true},
		{"exactly at cap", 60000, DefaultMaxDeltaMs, true},
		{"just over cap", 60001, DefaultMaxDeltaMs, false},
		{"far over cap", 3600000, DefaultMaxDeltaMs, false},
		{"custom cap inclusive", 5000, 5000, true},
		{"custom cap exceeded", 5001, 5000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidDelta(tt.delta, tt.max); got != tt.want {
				t.Errorf("ValidDelta(%d, %d) = %v, want %v", tt.delta, tt.max, got, tt.want)
			}
		})
	}
}

func TestDateKey(t *testing.T) {
	// 2026-03-15 23:30:00 UTC
	ts := time.Date(2026, 3, 15, 23, 30, 0, 0, time.UTC).UnixMilli()

	if got := DateKey(ts, time.UTC); got != "2026-03-15" {
		t.Errorf("DateKey in UTC = %q, want %q", got, "2026-03-15")
	}

	// The same instant is already the next day two hours east.
	east := time.FixedZone("east", 2*3600)
	if got := DateKey(ts, east); got != "2026-03-16" {
		t.Errorf("DateKey in UTC+2 = %q, want %q", got, "2026-03-16")
	}
}

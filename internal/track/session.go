package track

import (
	"strings"

	"github.com/pcormier/vidwatch/internal/storage"
)

// Session is the live accumulation state for one (tab, video) pair.
// At most one exists per composite key; all mutation happens under
// the tracker mutex.
type Session struct {
	TabID          string
	VideoID        string
	Platform       storage.Platform
	Category       storage.Category
	StartTime      int64 // ms
	LastUpdateTime int64 // ms, advanced only by valid deltas
	TotalWatchMs   int64 // monotonically non-decreasing
	Counted        bool  // transitions false→true at most once
}

// SessionSnapshot is a read-only copy handed to projections.
type SessionSnapshot struct {
	TabID        string           `json:"tabId"`
	VideoID      string           `json:"videoId"`
	Platform     storage.Platform `json:"platform"`
	Category     storage.Category `json:"category"`
	TotalWatchMs int64            `json:"totalWatchMs"`
	Counted      bool             `json:"counted"`
}

func (s *Session) snapshot() SessionSnapshot {
	return SessionSnapshot{
		TabID:        s.TabID,
		VideoID:      s.VideoID,
		Platform:     s.Platform,
		Category:     s.Category,
		TotalWatchMs: s.TotalWatchMs,
		Counted:      s.Counted,
	}
}

// sessionKey builds the composite live-map key.
func sessionKey(tabID, videoID string) string {
	return tabID + "::" + videoID
}

// keyTab extracts the tab segment of a composite key.
func keyTab(key string) string {
	if i := strings.Index(key, "::"); i >= 0 {
		return key[:i]
	}
	return key
}

package redis

import (
	"fmt"
	"strconv"

	"github.com/pcormier/vidwatch/internal/storage"
)

// parseAggregate converts a Redis hash into a DailyAggregate.
func parseAggregate(data map[string]string) (*storage.DailyAggregate, error) {
	watchMs, err := strconv.ParseInt(data["watch_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid watch_ms: %w", err)
	}
	count, err := strconv.ParseInt(data["count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid count: %w", err)
	}

	return &storage.DailyAggregate{
		Date:     data["date"],
		Platform: storage.Platform(data["platform"]),
		Category: storage.Category(data["category"]),
		WatchMs:  watchMs,
		Count:    count,
	}, nil
}

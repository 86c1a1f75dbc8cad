// Package stats derives non-persisted views from durable aggregates
// and the live session map. Every fold here is commutative and
// associative, so results do not depend on store iteration order.
package stats

import (
	"github.com/pcormier/vidwatch/internal/storage"
)

// Bucket is the {count, watchMs} accumulator shape shared by every
// rollup.
type Bucket struct {
	Count   int64 `json:"count"`
	WatchMs int64 `json:"watchMs"`
}

// BucketSet maps tracked categories to their accumulators.
type BucketSet map[storage.Category]Bucket

// NewBucketSet returns a zeroed set over the tracked categories.
func NewBucketSet(categories []storage.Category) BucketSet {
	set := make(BucketSet, len(categories))
	for _, category := range categories {
		set[category] = Bucket{}
	}
	return set
}

// Add folds an aggregate record into the set. Records of untracked
// categories are ignored; they remain stored but do not appear in
// projections.
func (s BucketSet) Add(agg storage.DailyAggregate) {
	bucket, ok := s[agg.Category]
	if !ok {
		return
	}
	bucket.Count += agg.Count
	bucket.WatchMs += agg.WatchMs
	s[agg.Category] = bucket
}

// TabStats is the live per-tab projection. Never persisted.
type TabStats struct {
	TabID   string    `json:"tabId"`
	Buckets BucketSet `json:"buckets"`
}

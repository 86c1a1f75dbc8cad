package stats

import (
	"context"
	"time"

	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/pcormier/vidwatch/internal/track"
)

// TrendPoint is one day of the daily trend series.
type TrendPoint struct {
	Date    string    `json:"date"`
	Buckets BucketSet `json:"buckets"`
}

// Summary is the global rollup served to dashboards.
type Summary struct {
	Today      BucketSet                      `json:"today"`
	Yesterday  BucketSet                      `json:"yesterday"`
	Last7Days  BucketSet                      `json:"last7Days"`
	Last30Days BucketSet                      `json:"last30Days"`
	Platforms  map[storage.Platform]BucketSet `json:"platforms"`
	Trend      []TrendPoint                   `json:"trend"`
}

// Summarizer builds rollups by range-querying the aggregate store.
type Summarizer struct {
	store      storage.Store
	categories []storage.Category
	clock      track.Clock
	loc        *time.Location
}

// NewSummarizer creates a summarizer over the tracked category set.
func NewSummarizer(store storage.Store, categories []storage.Category, clock track.Clock, loc *time.Location) *Summarizer {
	if clock == nil {
		clock = track.RealClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Summarizer{
		store:      store,
		categories: categories,
		clock:      clock,
		loc:        loc,
	}
}

// Summarize folds the last 30 days of aggregates into the today /
// yesterday / 7-day / 30-day rollups, the per-platform breakdown and
// the date-sorted trend series. One range query feeds every fold.
func (s *Summarizer) Summarize(ctx context.Context) (*Summary, error) {
	now := s.clock.Now().In(s.loc)
	today := now.Format(storage.DateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(storage.DateLayout)
	weekStart := now.AddDate(0, 0, -6).Format(storage.DateLayout)
	monthStart := now.AddDate(0, 0, -29).Format(storage.DateLayout)

	records, err := s.store.Aggregates().ListRange(ctx, monthStart, today)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Today:      NewBucketSet(s.categories),
		Yesterday:  NewBucketSet(s.categories),
		Last7Days:  NewBucketSet(s.categories),
		Last30Days: NewBucketSet(s.categories),
		Platforms:  make(map[storage.Platform]BucketSet),
	}

	// Zero-fill the trend so charts get a point per day regardless of
	// which days saw activity.
	trendIndex := make(map[string]int, 30)
	for day := 0; day < 30; day++ {
		date := now.AddDate(0, 0, day-29).Format(storage.DateLayout)
		trendIndex[date] = len(summary.Trend)
		summary.Trend = append(summary.Trend, TrendPoint{
			Date:    date,
			Buckets: NewBucketSet(s.categories),
		})
	}

	for _, record := range records {
		summary.Last30Days.Add(record)
		if record.Date == today {
			summary.Today.Add(record)
		}
		if record.Date == yesterday {
			summary.Yesterday.Add(record)
		}
		if record.Date >= weekStart {
			summary.Last7Days.Add(record)
		}

		platform, ok := summary.Platforms[record.Platform]
		if !ok {
			platform = NewBucketSet(s.categories)
			summary.Platforms[record.Platform] = platform
		}
		platform.Add(record)

		if i, ok := trendIndex[record.Date]; ok {
			summary.Trend[i].Buckets.Add(record)
		}
	}

	return summary, nil
}

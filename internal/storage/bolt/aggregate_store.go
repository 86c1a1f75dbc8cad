package bolt

import (
	"context"
	"fmt"

	"github.com/pcormier/vidwatch/internal/storage"
	"go.etcd.io/bbolt"
)

type aggregateStore struct {
	db *bbolt.DB
}

func (s *aggregateStore) Get(ctx context.Context, date string, platform storage.Platform, category storage.Category) (*storage.DailyAggregate, error) {
	key := storage.AggregateKey(date, platform, category)
	var agg *storage.DailyAggregate
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bucket := tx.Bucket([]byte(bucketAggregates))
		if bucket == nil {
			return storage.ErrNotFound
		}
		value := bucket.Get([]byte(key))
		if value == nil {
			return storage.ErrNotFound
		}
		var result storage.DailyAggregate
		if err := unmarshal(value, &result); err != nil {
			return err
		}
		agg = &result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// Increment performs the read-modify-write inside a single bbolt
// update transaction, which serializes all writers and makes the
// increment atomic per key.
func (s *aggregateStore) Increment(ctx context.Context, date string, platform storage.Platform, category storage.Category, watchMsDelta, countDelta int64) error {
	key := storage.AggregateKey(date, platform, category)
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bucket := tx.Bucket([]byte(bucketAggregates))
		if bucket == nil {
			return fmt.Errorf("aggregates bucket missing")
		}
		var agg storage.DailyAggregate
		if existing := bucket.Get([]byte(key)); existing != nil {
			if err := unmarshal(existing, &agg); err != nil {
				return err
			}
		} else {
			agg = storage.DailyAggregate{
				Date:     date,
				Platform: platform,
				Category: category,
			}
		}
		agg.WatchMs += watchMsDelta
		agg.Count += countDelta
		data, err := marshal(agg)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), data)
	})
}

func (s *aggregateStore) ListDate(ctx context.Context, date string) ([]storage.DailyAggregate, error) {
	return s.ListRange(ctx, date, date)
}

func (s *aggregateStore) ListRange(ctx context.Context, startDate, endDate string) ([]storage.DailyAggregate, error) {
	start, err := storage.ParseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := storage.ParseDate(endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date: %w", err)
	}

	aggregates := make([]storage.DailyAggregate, 0)
	err = s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketAggregates))
		if bucket == nil {
			return nil
		}
		// Keys start with the date, so a cursor seek to startDate and
		// a stop past endDate covers the inclusive range.
		c := bucket.Cursor()
		for k, v := c.Seek([]byte(startDate)); k != nil; k, v = c.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var agg storage.DailyAggregate
			if err := unmarshal(v, &agg); err != nil {
				return err
			}
			date, err := storage.ParseDate(agg.Date)
			if err != nil {
				continue
			}
			if date.After(end) {
				return nil
			}
			if date.Before(start) {
				continue
			}
			aggregates = append(aggregates, agg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return aggregates, nil
}

package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pcormier/vidwatch/internal/storage"
	"go.etcd.io/bbolt"
)

type eventStore struct {
	db *bbolt.DB
}

func (s *eventStore) Add(ctx context.Context, event storage.TrackerEvent) (storage.TrackerEvent, error) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	key, err := eventKey(event.Timestamp)
	if err != nil {
		return storage.TrackerEvent{}, err
	}
	data, err := marshal(event)
	if err != nil {
		return storage.TrackerEvent{}, err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bucket := tx.Bucket([]byte(bucketEvents))
		if bucket == nil {
			return fmt.Errorf("events bucket missing")
		}
		return bucket.Put([]byte(key), data)
	})
	if err != nil {
		return storage.TrackerEvent{}, err
	}
	return event, nil
}

func (s *eventStore) List(ctx context.Context, filter storage.EventFilter) ([]storage.TrackerEvent, error) {
	events := make([]storage.TrackerEvent, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketEvents))
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var event storage.TrackerEvent
			if err := unmarshal(v, &event); err != nil {
				return err
			}
			if !filter.Match(event) {
				continue
			}
			events = append(events, event)
			if filter.Limit > 0 && len(events) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *eventStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	cutoffMs := cutoff.UnixMilli()
	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bucket := tx.Bucket([]byte(bucketEvents))
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var event storage.TrackerEvent
			if err := unmarshal(v, &event); err != nil {
				return err
			}
			// Keys are timestamp-ordered, so the first retained
			// event ends the sweep.
			if event.Timestamp >= cutoffMs {
				return nil
			}
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

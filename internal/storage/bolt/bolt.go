package bolt

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pcormier/vidwatch/internal/storage"
	"go.etcd.io/bbolt"
)

const (
	bucketEvents     = "events"
	bucketAggregates = "aggregates"
	bucketSettings   = "settings"
)

// Store implements the storage.Store interface using bbolt.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store. If eventRetention is positive,
// raw events older than the retention window are purged before the
// store is handed to callers.
func Open(path string, eventRetention time.Duration) (*Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if eventRetention > 0 {
		cutoff := time.Now().Add(-eventRetention)
		if _, err := store.Events().DeleteBefore(context.Background(), cutoff); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("purge expired events: %w", err)
		}
	}

	return store, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return storage.EnsureDir(dir)
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{
			[]byte(bucketEvents),
			[]byte(bucketAggregates),
			[]byte(bucketSettings),
		}
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Close closes the underlying store database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Events returns the raw event store.
func (s *Store) Events() storage.EventStore { return &eventStore{db: s.db} }

// Aggregates returns the daily aggregate store.
func (s *Store) Aggregates() storage.AggregateStore { return &aggregateStore{db: s.db} }

// Settings returns the settings store.
func (s *Store) Settings() storage.SettingStore { return &settingStore{db: s.db} }

func marshal(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return data, nil
}

func unmarshal(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}
	return nil
}

func randomSuffix() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random suffix: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// eventKey orders the events bucket by timestamp. A random suffix
// keeps events with identical timestamps from colliding.
func eventKey(timestampMs int64) (string, error) {
	suffix, err := randomSuffix()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%020d-%s", timestampMs, suffix), nil
}

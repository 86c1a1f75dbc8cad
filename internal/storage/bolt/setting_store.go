package bolt

import (
	"context"
	"fmt"

	"github.com/pcormier/vidwatch/internal/storage"
	"go.etcd.io/bbolt"
)

type settingStore struct {
	db *bbolt.DB
}

func (s *settingStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bucket := tx.Bucket([]byte(bucketSettings))
		if bucket == nil {
			return storage.ErrNotFound
		}
		data := bucket.Get([]byte(key))
		if data == nil {
			return storage.ErrNotFound
		}
		value = string(data)
		return nil
	})
	return value, err
}

func (s *settingStore) Set(ctx context.Context, key, value string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bucket := tx.Bucket([]byte(bucketSettings))
		if bucket == nil {
			return fmt.Errorf("settings bucket missing")
		}
		return bucket.Put([]byte(key), []byte(value))
	})
}

func (s *settingStore) All(ctx context.Context) (map[string]string, error) {
	settings := make(map[string]string)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketSettings))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			settings[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

package redis

import (
	"context"

	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/redis/go-redis/v9"
)

const settingsKey = "vidwatch:settings"

// settingStore keeps all settings in one hash so Get/Set stay atomic
// without scripting.
type settingStore struct {
	client *redis.Client
}

func (s *settingStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.HGet(ctx, settingsKey, key).Result()
	if err == redis.Nil {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *settingStore) Set(ctx context.Context, key, value string) error {
	return s.client.HSet(ctx, settingsKey, key, value).Err()
}

func (s *settingStore) All(ctx context.Context) (map[string]string, error) {
	return s.client.HGetAll(ctx, settingsKey).Result()
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/pcormier/vidwatch/internal/config"
	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Store implements the storage.Store interface using Redis.
type Store struct {
	client         *redis.Client
	eventStore     *eventStore
	aggregateStore *aggregateStore
	settingStore   *settingStore
}

// Open creates a new Redis-backed storage instance. A failed connect
// is returned to the caller; the engine treats it as fatal.
func Open(cfg config.RedisConfig, eventRetention time.Duration) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := &Store{
		client:         client,
		eventStore:     &eventStore{client: client, retention: eventRetention},
		aggregateStore: &aggregateStore{client: client},
		settingStore:   &settingStore{client: client},
	}

	return store, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Events returns the EventStore implementation.
func (s *Store) Events() storage.EventStore {
	return s.eventStore
}

// Aggregates returns the AggregateStore implementation.
func (s *Store) Aggregates() storage.AggregateStore {
	return s.aggregateStore
}

// Settings returns the SettingStore implementation.
func (s *Store) Settings() storage.SettingStore {
	return s.settingStore
}

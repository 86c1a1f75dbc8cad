package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/redis/go-redis/v9"
)

type eventStore struct {
	client    *redis.Client
	retention time.Duration
}

func eventKey(id string) string {
	return "vidwatch:event:" + id
}

const eventIndexKey = "vidwatch:events"

// Add appends an event. Retention is enforced with a per-key TTL
// rather than a sweep, mirroring how the index is trimmed lazily
// in List.
func (s *eventStore) Add(ctx context.Context, event storage.TrackerEvent) (storage.TrackerEvent, error) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return storage.TrackerEvent{}, fmt.Errorf("marshal event: %w", err)
	}

	ttlSeconds := int64(0)
	if s.retention > 0 {
		ttlSeconds = int64(s.retention.Seconds())
	}

	script := redis.NewScript(addEventScript)
	keys := []string{eventKey(event.ID), eventIndexKey}
	args := []interface{}{event.ID, event.Timestamp, string(body), ttlSeconds}

	if err := script.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return storage.TrackerEvent{}, err
	}
	return event, nil
}

func (s *eventStore) List(ctx context.Context, filter storage.EventFilter) ([]storage.TrackerEvent, error) {
	min := "-inf"
	if filter.SinceMs > 0 {
		min = strconv.FormatInt(filter.SinceMs, 10)
	}
	max := "+inf"
	if filter.UntilMs > 0 {
		max = "(" + strconv.FormatInt(filter.UntilMs, 10)
	}

	ids, err := s.client.ZRangeByScore(ctx, eventIndexKey, &redis.ZRangeBy{Min: min, Max: max}).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []storage.TrackerEvent{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, eventKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	events := make([]storage.TrackerEvent, 0, len(ids))
	expired := make([]interface{}, 0)
	for i, cmd := range cmds {
		body, err := cmd.Result()
		if err != nil {
			// Body hit its TTL but the index entry survived; trim it.
			if err == redis.Nil {
				expired = append(expired, ids[i])
			}
			continue
		}
		var event storage.TrackerEvent
		if err := json.Unmarshal([]byte(body), &event); err != nil {
			continue
		}
		if !filter.Match(event) {
			continue
		}
		events = append(events, event)
		if filter.Limit > 0 && len(events) >= filter.Limit {
			break
		}
	}

	if len(expired) > 0 {
		_ = s.client.ZRem(ctx, eventIndexKey, expired...).Err()
	}

	return events, nil
}

func (s *eventStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	max := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)

	ids, err := s.client.ZRangeByScore(ctx, eventIndexKey, &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, eventKey(id))
	}
	pipe.ZRemRangeByScore(ctx, eventIndexKey, "-inf", max)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	return len(ids), nil
}

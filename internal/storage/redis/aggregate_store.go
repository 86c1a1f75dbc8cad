package redis

import (
	"context"
	"fmt"

	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/redis/go-redis/v9"
)

type aggregateStore struct {
	client *redis.Client
}

func aggKey(date string, platform storage.Platform, category storage.Category) string {
	return "vidwatch:agg:" + storage.AggregateKey(date, platform, category)
}

func aggIndexKey(date string) string {
	return "vidwatch:agg:index:" + date
}

func (s *aggregateStore) Get(ctx context.Context, date string, platform storage.Platform, category storage.Category) (*storage.DailyAggregate, error) {
	data, err := s.client.HGetAll(ctx, aggKey(date, platform, category)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}
	return parseAggregate(data)
}

// Increment runs as a Lua script so that baseline creation, index
// registration and the HINCRBY increments execute atomically.
func (s *aggregateStore) Increment(ctx context.Context, date string, platform storage.Platform, category storage.Category, watchMsDelta, countDelta int64) error {
	script := redis.NewScript(incrementAggregateScript)

	keys := []string{aggKey(date, platform, category), aggIndexKey(date)}
	args := []interface{}{date, string(platform), string(category), watchMsDelta, countDelta}

	return script.Run(ctx, s.client, keys, args...).Err()
}

func (s *aggregateStore) ListDate(ctx context.Context, date string) ([]storage.DailyAggregate, error) {
	pairs, err := s.client.SMembers(ctx, aggIndexKey(date)).Result()
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return []storage.DailyAggregate{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(pairs))
	for i, pair := range pairs {
		cmds[i] = pipe.HGetAll(ctx, "vidwatch:agg:"+date+"::"+pair)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	aggregates := make([]storage.DailyAggregate, 0, len(pairs))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		agg, err := parseAggregate(data)
		if err == nil {
			aggregates = append(aggregates, *agg)
		}
	}

	return aggregates, nil
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
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s precedes start date %s", endDate, startDate)
	}

	aggregates := make([]storage.DailyAggregate, 0)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		daily, err := s.ListDate(ctx, day.Format(storage.DateLayout))
		if err != nil {
			return nil, err
		}
		aggregates = append(aggregates, daily...)
	}
	return aggregates, nil
}

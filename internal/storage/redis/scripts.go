package redis

const (
	// incrementAggregateScript atomically increments or creates a
	// daily aggregate and maintains the per-date index.
	incrementAggregateScript = `
local agg_key = KEYS[1]       -- vidwatch:agg:{date}::{platform}::{category}
local index_key = KEYS[2]     -- vidwatch:agg:index:{date}

local date = ARGV[1]
local platform = ARGV[2]
local category = ARGV[3]
local watch_ms = tonumber(ARGV[4])
local count = tonumber(ARGV[5])

-- Create the record with a zero baseline if absent
local exists = redis.call('EXISTS', agg_key)
if exists == 0 then
  redis.call('HSET', agg_key,
    'date', date,
    'platform', platform,
    'category', category,
    'watch_ms', 0,
    'count', 0
  )
  -- Register the key in the date index for range scans
  local index_value = platform .. '::' .. category
  redis.call('SADD', index_key, index_value)
end

-- HINCRBY is atomic per field, so concurrent callers never lose updates
if watch_ms ~= 0 then
  redis.call('HINCRBY', agg_key, 'watch_ms', watch_ms)
end
if count ~= 0 then
  redis.call('HINCRBY', agg_key, 'count', count)
end

return 'OK'
`

	// addEventScript atomically stores an event body, registers it in
	// the time index and applies the rolling retention TTL.
	addEventScript = `
local event_key = KEYS[1]     -- vidwatch:event:{id}
local index_key = KEYS[2]     -- vidwatch:events

local id = ARGV[1]
local timestamp_ms = tonumber(ARGV[2])
local body = ARGV[3]
local ttl_seconds = tonumber(ARGV[4])

redis.call('SET', event_key, body)
redis.call('ZADD', index_key, timestamp_ms, id)

if ttl_seconds > 0 then
  redis.call('EXPIRE', event_key, ttl_seconds)
end

return 'OK'
`
)

package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

// slidingWindowScript runs the prune/count/append sequence atomically on one
// sorted set whose scores are admission times in unix milliseconds.
// KEYS[1] = bucket key
// ARGV[1] = now (ms)
// ARGV[2] = exclusive window start, "(<ms>"
// ARGV[3] = max per window
// ARGV[4] = exclusive hour start, "(<ms>"
// ARGV[5] = max per hour (0 disables)
// ARGV[6] = retention horizon (ms)
// ARGV[7] = unique member for this admission
var slidingWindowScript = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = ARGV[2]
local maxWindow = tonumber(ARGV[3])
local hourStart = ARGV[4]
local maxHour = tonumber(ARGV[5])
local horizon = tonumber(ARGV[6])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - horizon)

local inWindow = redis.call("ZCOUNT", key, windowStart, "+inf")
if inWindow >= maxWindow then
  local held = redis.call("ZREVRANGEBYSCORE", key, "+inf", windowStart, "WITHSCORES", "LIMIT", maxWindow - 1, 1)
  return {0, 1, tonumber(held[2]), 0}
end

if maxHour > 0 then
  local inHour = redis.call("ZCOUNT", key, hourStart, "+inf")
  if inHour >= maxHour then
    local held = redis.call("ZREVRANGEBYSCORE", key, "+inf", hourStart, "WITHSCORES", "LIMIT", maxHour - 1, 1)
    return {0, 2, tonumber(held[2]), 0}
  end
end

redis.call("ZADD", key, now, ARGV[7])
redis.call("PEXPIRE", key, horizon)
return {1, 0, 0, maxWindow - inWindow - 1}
`)

// Redis shares windows across replicas through one sorted set per bucket.
// Keys expire after the retention horizon, so no janitor is needed.
type Redis struct {
	rdb    goredis.Scripter
	prefix string
	now    func() time.Time
	log    *logger.Logger
}

func NewRedis(log *logger.Logger, rdb goredis.Scripter, prefix string) *Redis {
	if log == nil {
		log = logger.NewNop()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &Redis{rdb: rdb, prefix: prefix, now: time.Now, log: log.With("component", "RateLimitRedis")}
}

func (r *Redis) WithClock(now func() time.Time) *Redis {
	r.now = now
	return r
}

func (r *Redis) CheckAndRecord(ctx context.Context, identifier string, p Policy) (Decision, error) {
	if err := p.Validate(); err != nil {
		return Decision{}, err
	}
	now := r.now()
	nowMS := now.UnixMilli()
	key := fmt.Sprintf("%s:%s:%s", r.prefix, p.Name, identifier)
	args := []interface{}{
		nowMS,
		"(" + strconv.FormatInt(nowMS-p.Window.Milliseconds(), 10),
		p.MaxPerWindow,
		"(" + strconv.FormatInt(nowMS-hour.Milliseconds(), 10),
		p.MaxPerHour,
		p.horizon().Milliseconds(),
		strconv.FormatInt(nowMS, 10) + "-" + uuid.NewString(),
	}

	res, err := slidingWindowScript.Run(ctx, r.rdb, []string{key}, args...).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit: %w", err)
	}
	if len(res) != 4 {
		return Decision{}, fmt.Errorf("redis rate limit: unexpected script reply %v", res)
	}

	if res[0] == 1 {
		return Decision{Allowed: true, Remaining: int(res[3]), ResetAt: now.Add(p.Window)}, nil
	}
	held := time.UnixMilli(res[2])
	d := Decision{Reason: ErrWindowExceeded}
	d.ResetAt = held.Add(p.Window)
	if res[1] == 2 {
		d.Reason = ErrHourlyExceeded
		d.ResetAt = held.Add(hour)
	}
	d.RetryAfter = d.ResetAt.Sub(now)
	return d, nil
}

package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and takes one token atomically. Redis truncates
// Lua numbers to integers on return, so remaining tokens come back floored.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  tokens = math.min(burst, tokens + (delta / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens), now}
`

// RateLimitResult describes one admission decision.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// TokenBucket is a token bucket shared by every replica through redis.
type TokenBucket struct {
	client redis.Scripter
	script *redis.Script
}

func NewTokenBucket(client redis.Scripter) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	if t == nil || t.client == nil {
		return nil, errors.New("rate limiter not configured")
	}
	if err := validateArgs(key, rate, burst); err != nil {
		return nil, err
	}

	res, err := t.script.Run(
		ctx,
		t.client,
		[]string{key},
		rate,
		burst,
		bucketTTL(rate, burst).Milliseconds(),
	).Slice()
	if err != nil {
		return nil, err
	}
	if len(res) < 3 {
		return nil, errors.New("invalid rate limit script response")
	}

	allowed := toInt64(res[0]) == 1
	remaining := toFloat64(res[1])
	return newResult(allowed, remaining, rate, burst), nil
}

func newResult(allowed bool, remaining float64, rate float64, burst int) *RateLimitResult {
	result := &RateLimitResult{
		Allowed:   allowed,
		Limit:     burst,
		Remaining: int(math.Floor(remaining)),
	}
	if !allowed {
		if needed := 1.0 - remaining; needed > 0 {
			result.RetryAfter = time.Duration(needed / rate * float64(time.Second))
		}
	}
	return result
}

func validateArgs(key string, rate float64, burst int) error {
	switch {
	case key == "":
		return errors.New("rate limiter key is empty")
	case rate <= 0:
		return errors.New("rate limiter rate must be positive")
	case burst <= 0:
		return errors.New("rate limiter burst must be positive")
	}
	return nil
}

// bucketTTL is the time an idle bucket needs to refill completely, plus slack.
func bucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := float64(burst) / rate
	return time.Duration(seconds*float64(time.Second)) + time.Second
}

func toInt64(v interface{}) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case float64:
		return int64(val)
	case string:
		parsed, _ := strconv.ParseInt(val, 10, 64)
		return parsed
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case string:
		parsed, _ := strconv.ParseFloat(val, 64)
		return parsed
	default:
		return 0
	}
}

package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/masstrack/internal/config"
)

const clientKeyPrefix = "api:rate:"

// refillScript refills the bucket from redis server time, takes one token if
// it can, and reports the wait in milliseconds until the next token.
const refillScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local last = tonumber(state[2]) or now
if now > last then
  tokens = math.min(burst, tokens + (now - last) * rate / 1000)
end

local wait = 0
if tokens >= 1 then
  tokens = tokens - 1
else
  wait = math.ceil((1 - tokens) * 1000 / rate)
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return {math.floor(tokens), wait}
`

var errLimiterMisconfigured = errors.New("client limiter requires a positive rate and burst")

// Decision is the outcome of one ClientLimiter check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// ClientLimiter is a redis token bucket keyed by client address.
type ClientLimiter struct {
	client *redis.Client
	script *redis.Script
	rate   float64
	burst  int
	ttl    time.Duration
}

// NewClientLimiter returns nil without redis or when rate limiting is off.
func NewClientLimiter(client *redis.Client, cfg config.Config) (*ClientLimiter, error) {
	if client == nil || !cfg.RateLimit.Enabled {
		return nil, nil
	}
	rate, burst := cfg.RateLimit.APIRatePerSecond, cfg.RateLimit.APIBurst
	if rate <= 0 || burst <= 0 {
		return nil, errLimiterMisconfigured
	}
	return &ClientLimiter{
		client: client,
		script: redis.NewScript(refillScript),
		rate:   rate,
		burst:  burst,
		ttl:    idleTTL(rate, burst),
	}, nil
}

// Allow spends one token from the bucket of clientKey.
func (l *ClientLimiter) Allow(ctx context.Context, clientKey string) (Decision, error) {
	res, err := l.script.Run(ctx, l.client, []string{clientKeyPrefix + clientKey},
		l.rate, l.burst, l.ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) != 2 {
		return Decision{}, errInvalidScriptResponse
	}
	wait := time.Duration(res[1]) * time.Millisecond
	return Decision{
		Allowed:    wait == 0,
		Limit:      l.burst,
		Remaining:  int(res[0]),
		RetryAfter: wait,
	}, nil
}

// idleTTL keeps an untouched bucket for two full refills.
func idleTTL(rate float64, burst int) time.Duration {
	seconds := math.Max(1, math.Ceil(2*float64(burst)/rate))
	return time.Duration(seconds) * time.Second
}

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/config"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/logger"
)

// bucketScript takes one token from the bucket at KEYS[1], first crediting
// one token per elapsed refill period. ARGV: now_ms, burst, refill_ms,
// idle_ms. Returns {allowed, remaining, wait_ms}.
var bucketScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local idle = tonumber(ARGV[4])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local stamp = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
if tokens == nil or stamp == nil then
  tokens, stamp = burst, now
end

local earned = math.floor((now - stamp) / refill)
if earned > 0 then
  tokens = math.min(burst, tokens + earned)
  stamp = stamp + earned * refill
end
if tokens >= burst then
  stamp = now
end

local allowed, wait = 0, 0
if tokens >= 1 then
  allowed, tokens = 1, tokens - 1
else
  wait = refill - (now - stamp)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('PEXPIRE', KEYS[1], idle)
return {allowed, tokens, wait}
`)

// NewTokenBucket limits each client with a Redis token bucket keyed by
// rateKey. Redis failures let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb redis.UniversalClient) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	limit := strconv.Itoa(cfg.Burst)
	refillMs := cfg.RefillEvery.Milliseconds()
	idleMs := cfg.Idle().Milliseconds() + refillMs

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := rateKey(cfg, c)
			vals, err := bucketScript.Run(ctx, rdb, []string{key},
				time.Now().UnixMilli(), cfg.Burst, refillMs, idleMs).Int64Slice()
			if err != nil || len(vals) != 3 {
				logger.FromContext(ctx).Debug("rate limit skipped", "key", key, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))
			if vals[0] == 1 {
				return next(c)
			}

			wait := time.Duration(vals[2]) * time.Millisecond
			h.Set("Retry-After", strconv.Itoa(int((wait+time.Second-1)/time.Second)))
			logger.FromContext(ctx).Info("rate limited", "key", key, "retry_after", wait.String())
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "Too many requests. Please retry later."})
		}
	}
}

// rateKey is <prefix>:<ip>, or <prefix>:<ip>:<METHOD route> with PerRoute.
// The route pattern is used, so /tables/1/seat and /tables/2/seat share a
// bucket.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	key := cfg.Prefix + ":" + ip
	if cfg.PerRoute {
		key += ":" + c.Request().Method + " " + c.Path()
	}
	return key
}

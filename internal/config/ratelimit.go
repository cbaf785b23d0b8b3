package config

import "time"

// RateLimitConfig configures the per-client token bucket. A client may burst
// Burst requests, then earns one request back every RefillEvery. With
// PerRoute each route pattern has its own bucket, so hammering PUT
// /tables/:table_id/seat does not starve the reads.
type RateLimitConfig struct {
	Enabled     bool
	Burst       int
	RefillEvery time.Duration
	PerRoute    bool
	Prefix      string
}

// LoadRateLimitConfig reads RATE_LIMIT_ENABLED (true), RATE_LIMIT_BURST (60),
// RATE_LIMIT_REFILL_EVERY (1s), RATE_LIMIT_PER_ROUTE (true) and
// RATE_LIMIT_PREFIX (rl).
func LoadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:     envBool("RATE_LIMIT_ENABLED", true),
		Burst:       envInt("RATE_LIMIT_BURST", 60),
		RefillEvery: envDur("RATE_LIMIT_REFILL_EVERY", time.Second),
		PerRoute:    envBool("RATE_LIMIT_PER_ROUTE", true),
		Prefix:      envStr("RATE_LIMIT_PREFIX", "rl"),
	}
}

// Idle is how long an untouched bucket takes to refill completely. Redis
// drops the bucket after that, since a fresh one is identical.
func (c RateLimitConfig) Idle() time.Duration {
	return time.Duration(c.Burst) * c.RefillEvery
}

func (c RateLimitConfig) validate() []string {
	if !c.Enabled {
		return nil
	}
	var out []string
	if c.Burst < 1 {
		out = append(out, "RATE_LIMIT_BURST must be at least 1")
	}
	if c.RefillEvery < time.Millisecond {
		out = append(out, "RATE_LIMIT_REFILL_EVERY must be at least 1ms")
	}
	return out
}

package config

import (
	"fmt"
	"strings"
	"time"
)

// CacheConfig drives the Redis read-through cache in front of the reservation
// and table reads. Only GET requests under one of Paths are stored, so
// operational endpoints such as /healthz always reach their handler. A
// successful write under Paths retires every stored entry at once.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration // lifetime of an entry no write has retired
	Prefix       string        // Redis key namespace
	MaxBodyBytes int           // larger responses are served but not stored
	Paths        []string      // cached route groups, e.g. /tables
}

// LoadCacheConfig reads CACHE_ENABLED (true), CACHE_TTL (30s), CACHE_PREFIX
// (cache), CACHE_MAX_BODY_BYTES (1 MiB) and CACHE_PATHS
// (/reservations,/tables).
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
		Paths:        envList("CACHE_PATHS", "/reservations,/tables"),
	}
}

// Covers reports whether path falls inside one of the cached route groups.
// /tables covers /tables and /tables/3/seat but not /tablesx.
func (c CacheConfig) Covers(path string) bool {
	for _, p := range c.Paths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func (c CacheConfig) validate() []string {
	if !c.Enabled {
		return nil
	}
	var out []string
	if c.TTL <= 0 {
		out = append(out, "CACHE_TTL must be positive")
	}
	for _, p := range c.Paths {
		if !strings.HasPrefix(p, "/") || p == "/" || strings.HasSuffix(p, "/") {
			out = append(out, fmt.Sprintf("CACHE_PATHS entries must look like /tables, got %q", p))
		}
	}
	return out
}

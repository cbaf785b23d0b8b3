package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/config"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/logger"
)

// HeaderCache reports HIT or MISS on cached routes.
const HeaderCache = "X-Cache"

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// bodyRecorder forwards the response to the client and keeps a copy of the
// body as long as it stays within limit.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	limit    int
	body     bytes.Buffer
	overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.limit > 0 && r.body.Len()+len(b) > r.limit {
			r.overflow = true
			r.body.Reset()
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// generationKey holds a counter bumped by every successful write. It is part
// of every entry key, so one INCR retires all cached reads at once.
func generationKey(cfg config.CacheConfig) string { return cfg.Prefix + ":gen" }

// entryKey hashes the concrete path and query, so /tables/1 and /tables/2 or
// two dates of /reservations never share an entry.
func entryKey(cfg config.CacheConfig, gen int64, r *http.Request) string {
	sum := sha1.Sum([]byte(r.URL.RequestURI()))
	return fmt.Sprintf("%s:%d:%x", cfg.Prefix, gen, sum)
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewRedisCache answers GET requests under cfg.Paths from Redis and stores
// 200 responses on a miss. Other paths and methods pass straight through.
// Redis errors degrade to a plain pass-through.
func NewRedisCache(cfg config.CacheConfig, rdb redis.UniversalClient) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet || !cfg.Covers(req.URL.Path) {
				return next(c)
			}
			ctx := req.Context()
			gen, err := rdb.Get(ctx, generationKey(cfg)).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return next(c)
			}
			key := entryKey(cfg, gen, req)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(raw, &hit) == nil {
					return replay(c, hit)
				}
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set(HeaderCache, "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del(HeaderCache)
			hdr.Del(HeaderRequestID)
			raw, err := json.Marshal(cachedResponse{Status: rec.status, Header: hdr, Body: rec.body.Bytes()})
			if err != nil {
				return nil
			}
			if err := rdb.SetEx(context.WithoutCancel(ctx), key, raw, ttl).Err(); err != nil {
				logger.FromContext(ctx).Debug("cache store failed", "error", err)
			}
			return nil
		}
	}
}

func replay(c echo.Context, hit cachedResponse) error {
	h := c.Response().Header()
	for k, vals := range hit.Header {
		if k == echo.HeaderContentLength {
			continue
		}
		h[k] = vals
	}
	h.Set(HeaderCache, "HIT")
	c.Response().WriteHeader(hit.Status)
	_, err := c.Response().Write(hit.Body)
	return err
}

// NewCacheInvalidator bumps the cache generation after every successful write
// under cfg.Paths. Seating one table changes both lists, so the whole
// generation is retired rather than individual keys.
func NewCacheInvalidator(cfg config.CacheConfig, rdb redis.UniversalClient) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return err
			}
			if !cfg.Covers(req.URL.Path) {
				return err
			}
			if status := c.Response().Status; err == nil && status >= 200 && status < 300 {
				ctx := context.WithoutCancel(req.Context())
				if ierr := rdb.Incr(ctx, generationKey(cfg)).Err(); ierr != nil {
					logger.FromContext(ctx).Warn("cache invalidation failed", "error", ierr)
				}
			}
			return err
		}
	}
}

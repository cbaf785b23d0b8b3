// Package router assembles the Echo instance: middleware chain, error
// rendering and route registration.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/config"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/handler"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/metrics"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/middleware"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/service"
)

// Deps is everything New needs. Redis and Metrics are optional; leave Redis
// as a nil interface (not a typed nil) to disable caching and rate limiting.
type Deps struct {
	Services  *service.Services
	Health    *handler.HealthHandler
	Metrics   *metrics.Metrics
	Redis     redis.UniversalClient
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
}

// New builds an Echo instance with the full middleware chain and all routes.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler

	// Order matters: the request id must exist before anything logs, and the
	// invalidator must see the final status of writes the cache lets through.
	// Both cache stages only act on the groups in d.Cache.Paths.
	e.Use(
		middleware.RequestLogger(),
		echomw.Recover(),
		middleware.Metrics(d.Metrics),
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
		middleware.NewCacheInvalidator(d.Cache, d.Redis),
		middleware.NewRedisCache(d.Cache, d.Redis),
	)

	RegisterRoutes(e, d.Health, d.Metrics)
	RegisterReservations(e, handler.NewReservationHandler(d.Services.Reservations, d.Services.Seating))
	RegisterTables(e, handler.NewTableHandler(d.Services.Tables, d.Services.Seating))
	return e
}

// RegisterRoutes registers the operational endpoints: /healthz and, when
// metrics are enabled, /metrics.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler, m *metrics.Metrics) {
	if h != nil {
		e.GET("/healthz", h.Health)
	}
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

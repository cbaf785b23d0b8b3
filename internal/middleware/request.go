package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/logger"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/metrics"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = echo.HeaderXRequestID

// RequestLogger assigns a request id (reusing a well-formed incoming
// X-Request-ID), stores it in the request context and logs one line per
// request once the response is written.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(HeaderRequestID)
			if id == "" || len(id) > 128 {
				id = logger.NewRequestID()
			}
			ctx := logger.WithRequestID(req.Context(), id)
			c.SetRequest(req.WithContext(ctx))
			c.Response().Header().Set(HeaderRequestID, id)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"route", c.Path(),
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", c.RealIP(),
			}
			log := logger.FromContext(ctx)
			switch {
			case status >= http.StatusInternalServerError:
				log.Error("request completed", attrs...)
			case status >= http.StatusBadRequest:
				log.Warn("request completed", attrs...)
			default:
				log.Info("request completed", attrs...)
			}
			return nil
		}
	}
}

// Metrics records request latency by route pattern.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	if m == nil {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			m.HTTPDuration.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

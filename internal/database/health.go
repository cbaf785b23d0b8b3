package database

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// PoolStats is the JSON view of sql.DBStats reported by the health endpoint.
type PoolStats struct {
	MaxOpenConns      int    `json:"max_open_connections"`
	OpenConns         int    `json:"open_connections"`
	InUse             int    `json:"in_use"`
	Idle              int    `json:"idle"`
	WaitCount         int64  `json:"wait_count"`
	WaitDuration      string `json:"wait_duration"`
	MaxIdleClosed     int64  `json:"max_idle_closed"`
	MaxLifetimeClosed int64  `json:"max_lifetime_closed"`
}

// HealthCheck is the body of GET /healthz. Stats is omitted for stores
// without a connection pool.
type HealthCheck struct {
	Status       string     `json:"status"`
	Driver       string     `json:"driver"`
	ResponseTime string     `json:"response_time"`
	Error        string     `json:"error,omitempty"`
	Stats        *PoolStats `json:"stats,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// Healthy reports whether the last ping succeeded.
func (h HealthCheck) Healthy() bool { return h.Status == "healthy" }

// NewPoolStats converts stats, rendering WaitDuration as a duration string.
func NewPoolStats(stats sql.DBStats) *PoolStats {
	return &PoolStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration.String(),
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

// Pinger is anything that can verify its backing store, a *sqlx.DB or a
// repository.Store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain ping function.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Check pings p with a 5s timeout. stats may be nil when the store has no
// connection pool.
func Check(ctx context.Context, driver string, p Pinger, stats func() sql.DBStats) HealthCheck {
	start := time.Now()
	hc := HealthCheck{Driver: driver, Timestamp: start.UTC()}
	if stats != nil {
		hc.Stats = NewPoolStats(stats())
	}

	// Perform database ping with timeout
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := p.PingContext(pingCtx)
	hc.ResponseTime = time.Since(start).String()

	if err != nil {
		hc.Status = "unhealthy"
		hc.Error = err.Error()
		slog.Error("Database health check failed", "error", err)
	} else {
		hc.Status = "healthy"
	}
	return hc
}

// WarnOnPoolPressure logs when the pool looks saturated.
func WarnOnPoolPressure(stats sql.DBStats) {
	// Check for potential connection leaks
	if stats.MaxOpenConnections > 0 && stats.InUse > int(float64(stats.MaxOpenConnections)*0.9) {
		slog.Warn("High connection usage detected",
			"in_use", stats.InUse, "max_open", stats.MaxOpenConnections)
	}
	// Check for high wait times
	if stats.WaitCount > 0 && stats.WaitDuration > time.Second {
		slog.Warn("High database wait times detected",
			"wait_count", stats.WaitCount, "wait_duration", stats.WaitDuration)
	}
}

package handler

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/database"
)

// HealthHandler reports store reachability for load balancers and
// monitoring. Stats is nil when the store has no connection pool.
type HealthHandler struct {
	Driver string
	Pinger database.Pinger
	Stats  func() sql.DBStats
}

// Health answers 200 when the store responds to a ping and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	hc := database.Check(c.Request().Context(), h.Driver, h.Pinger, h.Stats)
	if h.Stats != nil {
		database.WarnOnPoolPressure(h.Stats())
	}
	status := http.StatusOK
	if !hc.Healthy() {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, hc)
}

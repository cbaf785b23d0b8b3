package router

import (
	"github.com/labstack/echo/v4"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/handler"
)

// RegisterReservations registers the /reservations resource.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler) {
	g := e.Group("/reservations")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:reservation_id", h.Get)
	g.PUT("/:reservation_id", h.Update)
	g.PUT("/:reservation_id/status", h.ChangeStatus)
}

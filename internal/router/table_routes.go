package router

import (
	"github.com/labstack/echo/v4"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/handler"
)

// RegisterTables registers the /tables resource and its seat assignment.
func RegisterTables(e *echo.Echo, h *handler.TableHandler) {
	g := e.Group("/tables")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:table_id", h.Get)
	g.PUT("/:table_id/seat", h.Seat)
	g.DELETE("/:table_id/seat", h.Finish)
}

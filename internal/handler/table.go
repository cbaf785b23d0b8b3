package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/model"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/service"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/validation"
)

// TableHandler serves /tables and the seat sub-resource.
type TableHandler struct {
	Tables  *service.TableService
	Seating *service.SeatingService
}

// NewTableHandler panics if a dependency is missing.
func NewTableHandler(tables *service.TableService, seating *service.SeatingService) *TableHandler {
	if tables == nil || seating == nil {
		panic("nil service passed to NewTableHandler")
	}
	return &TableHandler{Tables: tables, Seating: seating}
}

func (h *TableHandler) List(c echo.Context) error {
	out, err := h.Tables.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, out)
}

func (h *TableHandler) Create(c echo.Context) error {
	var in model.TableInput
	if err := bindData(c, &in); err != nil {
		return respondError(c, err)
	}
	t, err := h.Tables.Create(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusCreated, t)
}

func (h *TableHandler) Get(c echo.Context) error {
	id, err := parseID(c, "table_id", "Table")
	if err != nil {
		return respondError(c, err)
	}
	t, err := h.Tables.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, t)
}

// Seat handles PUT /tables/:table_id/seat with {"data":{"reservation_id":N}}.
func (h *TableHandler) Seat(c echo.Context) error {
	tableID, err := parseID(c, "table_id", "Table")
	if err != nil {
		return respondError(c, err)
	}
	var body struct {
		ReservationID any `json:"reservation_id"`
	}
	if err := bindData(c, &body); err != nil {
		return respondError(c, err)
	}
	reservationID, err := validation.ValidateSeatRequest(body.ReservationID)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Seating.Seat(c.Request().Context(), tableID, reservationID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, echo.Map{
		"status":      model.StatusSeated,
		"table":       out.Table,
		"reservation": out.Reservation,
	})
}

// Finish handles DELETE /tables/:table_id/seat.
func (h *TableHandler) Finish(c echo.Context) error {
	tableID, err := parseID(c, "table_id", "Table")
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.Seating.Finish(c.Request().Context(), tableID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, out)
}

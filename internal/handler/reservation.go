package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/model"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/service"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/validation"
)

// ReservationHandler serves /reservations.
type ReservationHandler struct {
	Reservations *service.ReservationService // list, create, read, edit
	Seating      *service.SeatingService     // status changes
}

// NewReservationHandler panics if a dependency is missing.
func NewReservationHandler(reservations *service.ReservationService, seating *service.SeatingService) *ReservationHandler {
	if reservations == nil || seating == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: reservations, Seating: seating}
}

// List handles GET /reservations?date=YYYY-MM-DD.
func (h *ReservationHandler) List(c echo.Context) error {
	out, err := h.Reservations.List(c.Request().Context(), c.QueryParam("date"))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, out)
}

// Create handles POST /reservations and answers 201 with the stored record.
func (h *ReservationHandler) Create(c echo.Context) error {
	var in model.ReservationInput
	if err := bindData(c, &in); err != nil {
		return respondError(c, err)
	}
	res, err := h.Reservations.Create(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusCreated, res)
}

// Get handles GET /reservations/:reservation_id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := parseID(c, "reservation_id", "Reservation")
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.Reservations.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, res)
}

// Update handles PUT /reservations/:reservation_id with a partial payload.
func (h *ReservationHandler) Update(c echo.Context) error {
	id, err := parseID(c, "reservation_id", "Reservation")
	if err != nil {
		return respondError(c, err)
	}
	var patch map[string]any
	if err := bindData(c, &patch); err != nil {
		return respondError(c, err)
	}
	res, err := h.Reservations.Update(c.Request().Context(), id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, res)
}

// ChangeStatus handles PUT /reservations/:reservation_id/status.
func (h *ReservationHandler) ChangeStatus(c echo.Context) error {
	id, err := parseID(c, "reservation_id", "Reservation")
	if err != nil {
		return respondError(c, err)
	}
	var body struct {
		Status any `json:"status"`
	}
	if err := bindData(c, &body); err != nil {
		return respondError(c, err)
	}
	status, err := validation.ValidateStatus(body.Status)
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.Seating.ChangeStatus(c.Request().Context(), id, status)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, res)
}

// Package handler exposes the HTTP handlers of the reservation API. Success
// bodies are {"data": ...} and failures {"error": message}, with request
// payloads wrapped the same way.
package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/apperr"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/logger"
)

// envelope is the request wrapper {"data": {...}}.
type envelope[T any] struct {
	Data T `json:"data"`
}

// bindData decodes the request envelope into dst. A missing body or a
// missing data key leaves dst zero, which the validators then report field
// by field.
func bindData[T any](c echo.Context, dst *T) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	var env envelope[T]
	if err := c.Echo().JSONSerializer.Deserialize(c, &env); err != nil {
		return apperr.Validation("Request body must be valid JSON.")
	}
	*dst = env.Data
	return nil
}

// parseID reads a positive integer path parameter. An id that cannot exist
// is reported the same way as one that does not.
func parseID(c echo.Context, param, entity string) (int64, error) {
	raw := c.Param(param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.NotFound("%s %s does not exist.", entity, raw)
	}
	return id, nil
}

// respondError renders err with the status of its kind. Storage failures are
// logged and hidden behind a generic message.
func respondError(c echo.Context, err error) error {
	ae, ok := apperr.As(err)
	if !ok || ae.Kind == apperr.KindStorage {
		logger.FromContext(c.Request().Context()).Error("request failed",
			"method", c.Request().Method, "path", c.Request().URL.Path, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
	return c.JSON(ae.Kind.HTTPStatus(), echo.Map{"error": ae.Message})
}

func respondData(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"data": data})
}

// ErrorHandler renders framework errors (unknown route, wrong method, bad
// binding) in the same {"error": ...} shape as handler errors.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if he, ok := err.(*echo.HTTPError); ok {
		msg := http.StatusText(he.Code)
		switch he.Code {
		case http.StatusNotFound:
			msg = "Path not found: " + c.Request().URL.Path
		case http.StatusMethodNotAllowed:
			msg = c.Request().Method + " not allowed for " + c.Request().URL.Path
		}
		_ = c.JSON(he.Code, echo.Map{"error": msg})
		return
	}
	_ = respondError(c, err)
}

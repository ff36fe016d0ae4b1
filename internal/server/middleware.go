package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/guideops/chat-core/internal/models"
)

// errorHandler maps domain errors onto HTTP statuses so controllers can
// return them untranslated.
func errorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			c.Logger().Error(err)
		case models.IsValidation(err):
			he = &echo.HTTPError{
				Code:    http.StatusBadRequest,
				Message: err.Error(),
			}
		case errors.Is(err, models.ErrNotMember):
			he = &echo.HTTPError{
				Code:    http.StatusForbidden,
				Message: "not a member of this room",
			}
		case errors.Is(err, models.ErrStoreUnavailable):
			he = &echo.HTTPError{
				Code:    http.StatusServiceUnavailable,
				Message: "message store unavailable",
			}
		default:
			he = &echo.HTTPError{
				Code:    http.StatusInternalServerError,
				Message: http.StatusText(http.StatusInternalServerError),
			}
		}

		if !c.Response().Committed {
			if c.Request().Method == http.MethodHead {
				err = c.NoContent(he.Code)
			} else {
				err = c.JSON(he.Code, he)
			}
			if err != nil {
				c.Logger().Error(err)
			}
		}
	}
}

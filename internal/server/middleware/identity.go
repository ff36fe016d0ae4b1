package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const UserIDHeader = "X-User-ID"

func GetUserID(c echo.Context) string {
	if id, ok := c.Get("user_id").(string); ok {
		return id
	}
	return ""
}

// Identity resolves the caller from the X-User-ID header set by the
// authenticating gateway in front of this service. Requests that reach
// us without it are rejected, not defaulted.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := strings.TrimSpace(c.Request().Header.Get(UserIDHeader))
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
			}

			// Store user id in context for downstream handlers
			c.Set("user_id", userID)
			return next(c)
		}
	}
}

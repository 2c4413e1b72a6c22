package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type, X-User-Id, X-Auth-Token, Authorization"
	corsMaxAge       = "86400"
)

// CORS sets the allowed origin on every response and answers preflight
// requests itself with 200 and an empty body. Register it with e.Pre so
// OPTIONS never reaches the router.
func CORS(origin string) echo.MiddlewareFunc {
	if origin == "" {
		origin = "*"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, origin)

			if c.Request().Method != http.MethodOptions {
				return next(c)
			}

			h.Set(echo.HeaderAccessControlAllowMethods, corsAllowMethods)
			h.Set(echo.HeaderAccessControlAllowHeaders, corsAllowHeaders)
			h.Set(echo.HeaderAccessControlMaxAge, corsMaxAge)
			return c.NoContent(http.StatusOK)
		}
	}
}

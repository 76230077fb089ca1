package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// corsHeaders are written on every response. The policy is fixed.
var corsHeaders = [...][2]string{
	{echo.HeaderAccessControlAllowOrigin, "*"},
	{echo.HeaderAccessControlAllowMethods, "GET, POST, PUT, DELETE, OPTIONS"},
	{echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization"},
}

// CORS returns an Echo middleware that sets the permissive CORS headers
// before the rest of the chain runs, so error responses written later by
// handlers or Echo's error handler keep them. OPTIONS requests are answered
// here with 200 and an empty body whatever the path.
//
// Register it with (*echo.Echo).Pre so it also covers requests the router
// cannot match.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range corsHeaders {
				h.Set(kv[0], kv[1])
			}

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}

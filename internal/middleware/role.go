package middleware // middleware provides reusable HTTP middleware for the booking API

import (
	"net/http" // standard HTTP status codes

	"github.com/labstack/echo/v4" // echo middleware chaining and context
)

// RequireRole enforces that the authenticated caller carries one of
// the given roles in its token.  It assumes JWTAuth already ran and
// stored the role under the context key "role"; a missing or unknown
// role is rejected with 403 Forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns a middleware that lets a request through only when
// the authenticated staff member holds one of roles. The accepted values
// are the ones stored in the access token's "role" claim (STAFF or
// MANAGER). JWTAuth must run first: it copies the claim into the request
// context, and a request without it is treated as having no role at all.
// Rejected requests end with 403 Forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	// Set of allowed roles; a missing key reads as false.
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Role returns "" when JWTAuth stored nothing, which is never
			// in the allowed set.
			if !allowed[Role(c)] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			// Otherwise call the next handler in the chain.
			return next(c)
		}
	}
}

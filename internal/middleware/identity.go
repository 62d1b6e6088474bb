package middleware

import (
	"github.com/labstack/echo/v4"
)

// StaffID returns the authenticated staff ID stored by JWTAuth. Requests
// that reached the handler without a valid token (public routes) yield
// "anon", which the rate limiter uses as a shared bucket key.
func StaffID(c echo.Context) string {
	if s, ok := c.Get(ctxStaffID).(string); ok && s != "" {
		return s
	}
	return "anon"
}

// Role returns the authenticated role, or "" when unauthenticated. The
// value is read from the context under the key set by JWTAuth; a value of
// the wrong type is treated as missing.
func Role(c echo.Context) string {
	s, _ := c.Get(ctxRole).(string)
	return s
}

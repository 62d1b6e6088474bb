package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-allocation/internal/utils"
)

// Context keys set by JWTAuth.
const (
	ctxStaffID = "staff_id"
	ctxRole    = "role"
)

// JWTAuth returns a middleware that validates the access token carried in
// the Authorization header ("Bearer <token>"). The token must be signed
// with secret using HS256, must not be expired and must name both a staff
// member (sub) and a role. On success the staff ID and role are stored in
// the request context, where RequireRole, the rate limiter and handlers
// read them through StaffID and Role. Any failure ends the request with
// 401 Unauthorized before the next handler runs.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Extract the header; anything other than a bearer token is
			// rejected without attempting to parse it.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			// Expose the identity to the rest of the chain.
			c.Set(ctxStaffID, claims.Subject)
			c.Set(ctxRole, claims.Role)
			return next(c)
		}
	}
}

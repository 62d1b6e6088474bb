// Package router registers the HTTP routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-allocation/internal/handler"
	"github.com/iliyamo/table-allocation/internal/middleware"
	"github.com/iliyamo/table-allocation/internal/utils"
)

// Handlers bundles every handler the API exposes.
type Handlers struct {
	Assignments *handler.AssignmentHandler
	Layouts     *handler.LayoutHandler
	Locks       *handler.LockHandler
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the staff API under /v1. Every route requires a
// valid JWT with the STAFF or MANAGER role; layout edits require MANAGER.
// Extra middleware (rate limiting) runs after authentication so limits can
// key on the staff ID.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, extra ...echo.MiddlewareFunc) {
	mw := append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleStaff, utils.RoleManager),
	}, extra...)
	g := e.Group("/v1", mw...)

	g.POST("/assignments", h.Assignments.Assign)
	g.DELETE("/assignments", h.Assignments.Release)

	g.GET("/layouts/:date/:category", h.Layouts.Get)
	g.GET("/layouts/:date/:category/cells", h.Layouts.CellAt)
	g.GET("/layouts/:date/:category/tables/:id/adjacency", h.Layouts.Adjacency)

	manager := middleware.RequireRole(utils.RoleManager)
	g.PUT("/layouts/:date/:category", h.Layouts.Put, manager)
	g.POST("/layouts/:date/:category/reset", h.Layouts.Reset, manager)
	g.PATCH("/layouts/:date/:category/tables/:id", h.Layouts.PatchTable, manager)

	g.POST("/locks", h.Locks.Create)
	g.DELETE("/locks", h.Locks.Delete)
	g.GET("/locks/:table_id", h.Locks.Get)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-allocation/internal/adjacency"
	"github.com/iliyamo/table-allocation/internal/assign"
	"github.com/iliyamo/table-allocation/internal/layout"
	"github.com/iliyamo/table-allocation/internal/model"
	"github.com/iliyamo/table-allocation/internal/service"
	"github.com/iliyamo/table-allocation/internal/venue"
)

// LayoutHandler serves /v1/layouts/:date/:category.
type LayoutHandler struct {
	Alloc   *service.Allocator
	Layouts *layout.Cache
	Venue   *venue.Registry
	Source  assign.ReservationSource
}

func (h *LayoutHandler) respond(c echo.Context, status int, k layout.Key, tables []model.Table) error {
	rows, cols := h.Venue.GridSize()
	return c.JSON(status, echo.Map{
		"key":      k.String(),
		"date":     k.Date.Format(model.DateLayout),
		"category": k.Category,
		"rows":     rows,
		"cols":     cols,
		"tables":   tables,
	})
}

// Get handles GET /v1/layouts/:date/:category. A missing layout is filled
// from the closest earlier one or the base configuration.
func (h *LayoutHandler) Get(c echo.Context) error {
	d, cat, err := layoutParams(c)
	if err != nil {
		return badRequest(c, "invalid date or category")
	}
	return h.respond(c, http.StatusOK, layout.NewKey(d, cat), h.Layouts.Load(d, cat))
}

// Put handles PUT /v1/layouts/:date/:category with body {"tables": [...]}.
func (h *LayoutHandler) Put(c echo.Context) error {
	d, cat, err := layoutParams(c)
	if err != nil {
		return badRequest(c, "invalid date or category")
	}
	var body struct {
		Tables []model.Table `json:"tables"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(body.Tables) == 0 {
		return badRequest(c, "tables are required")
	}
	rows, cols := h.Venue.GridSize()
	tables, err := h.Alloc.SaveLayout(c.Request().Context(), body.Tables, d, cat, rows, cols)
	if err != nil {
		return layoutError(c, err)
	}
	return h.respond(c, http.StatusOK, layout.NewKey(d, cat), tables)
}

// Reset handles POST /v1/layouts/:date/:category/reset.
func (h *LayoutHandler) Reset(c echo.Context) error {
	d, cat, err := layoutParams(c)
	if err != nil {
		return badRequest(c, "invalid date or category")
	}
	tables := h.Alloc.ResetLayout(c.Request().Context(), d, cat)
	return h.respond(c, http.StatusOK, layout.NewKey(d, cat), tables)
}

// PatchTable handles PATCH /v1/layouts/:date/:category/tables/:id with
// body {"row": r, "column": c} and/or {"visible": bool}.
func (h *LayoutHandler) PatchTable(c echo.Context) error {
	d, cat, err := layoutParams(c)
	if err != nil {
		return badRequest(c, "invalid date or category")
	}
	id, ok := intParam(c, "id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	var body struct {
		Row     *int  `json:"row"`
		Column  *int  `json:"column"`
		Visible *bool `json:"visible"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if (body.Row == nil) != (body.Column == nil) {
		return badRequest(c, "row and column must be given together")
	}
	if body.Row == nil && body.Visible == nil {
		return badRequest(c, "nothing to change")
	}

	ctx := c.Request().Context()
	var tables []model.Table
	if body.Row != nil {
		if tables, err = h.Alloc.MoveTable(ctx, d, cat, id, *body.Row, *body.Column); err != nil {
			return layoutError(c, err)
		}
	}
	if body.Visible != nil {
		if tables, err = h.Alloc.SetTableVisibility(ctx, d, cat, id, *body.Visible); err != nil {
			return layoutError(c, err)
		}
	}
	return h.respond(c, http.StatusOK, layout.NewKey(d, cat), tables)
}

// CellAt handles GET /v1/layouts/:date/:category/cells?row=&col= and
// returns the visible table covering that cell.
func (h *LayoutHandler) CellAt(c echo.Context) error {
	d, cat, err := layoutParams(c)
	if err != nil {
		return badRequest(c, "invalid date or category")
	}
	row, err1 := strconv.Atoi(c.QueryParam("row"))
	col, err2 := strconv.Atoi(c.QueryParam("col"))
	if err1 != nil || err2 != nil {
		return badRequest(c, "row and col are required integers")
	}
	t, ok := h.Layouts.TableAt(d, cat, row, col)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no table at cell"})
	}
	return c.JSON(http.StatusOK, t)
}

// Adjacency handles GET /v1/layouts/:date/:category/tables/:id/adjacency.
func (h *LayoutHandler) Adjacency(c echo.Context) error {
	d, cat, err := layoutParams(c)
	if err != nil {
		return badRequest(c, "invalid date or category")
	}
	id, ok := intParam(c, "id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	active := layout.Visible(h.Layouts.Load(d, cat))
	var target *model.Table
	for i := range active {
		if active[i].ID == id {
			target = &active[i]
			break
		}
	}
	if target == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "table not in layout"})
	}
	reservations, err := h.Source.ReservationsOn(c.Request().Context(), d.Format(model.DateLayout))
	if err != nil {
		c.Logger().Errorf("list reservations: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list reservations"})
	}
	count, sides := adjacency.Neighbors(*target, active)
	shared, sharedSides := adjacency.SharedReservationNeighbors(*target, active, onCategory(reservations, cat))
	return c.JSON(http.StatusOK, echo.Map{
		"table_id":     id,
		"count":        count,
		"neighbors":    sides,
		"shared_count": shared,
		"shared":       sharedSides,
	})
}

func onCategory(reservations []model.Reservation, cat model.Category) []model.Reservation {
	out := reservations[:0:0]
	for _, r := range reservations {
		if r.Category == cat {
			out = append(out, r)
		}
	}
	return out
}

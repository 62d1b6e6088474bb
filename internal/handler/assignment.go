package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-allocation/internal/model"
	"github.com/iliyamo/table-allocation/internal/service"
	"github.com/iliyamo/table-allocation/internal/venue"
)

// AssignmentHandler serves /v1/assignments.
type AssignmentHandler struct {
	Alloc *service.Allocator
	Venue *venue.Registry
}

type assignmentRequest struct {
	Reservation   model.Reservation `json:"reservation"`
	ForcedTableID *int              `json:"forced_table_id"`
}

// Assign handles POST /v1/assignments. The reservation's current tables
// may be given by ID only; they are resolved against the venue.
func (h *AssignmentHandler) Assign(c echo.Context) error {
	var body assignmentRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, msg := h.normalize(body.Reservation)
	if msg != "" {
		return badRequest(c, msg)
	}
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}

	updated, err := h.Alloc.Assign(c.Request().Context(), res, body.ForcedTableID)
	if err != nil {
		return assignError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation": updated,
		"tables":      updated.Tables,
		"capacity":    model.TotalCapacity(updated.Tables),
	})
}

// Release handles DELETE /v1/assignments: it drops the holds of the
// reservation's tables for its window.
func (h *AssignmentHandler) Release(c echo.Context) error {
	var body assignmentRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, msg := h.normalize(body.Reservation)
	if msg != "" {
		return badRequest(c, msg)
	}
	if res.ID == uuid.Nil {
		return badRequest(c, "reservation id is required")
	}
	n, err := h.Alloc.Release(c.Request().Context(), res)
	if err != nil {
		return assignError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": n})
}

// normalize fills defaults and resolves table IDs. A non-empty message
// describes why the reservation is unusable.
func (h *AssignmentHandler) normalize(res model.Reservation) (model.Reservation, string) {
	if res.NumberOfPersons < 1 {
		return res, "numberOfPersons must be at least 1"
	}
	if _, err := model.ParseCategory(string(res.Category)); err != nil {
		return res, "unknown category"
	}
	if _, _, err := res.Window(time.UTC); err != nil {
		return res, err.Error()
	}
	if res.Status == "" {
		res.Status = model.StatusConfirmed
	}
	if res.Kind == "" {
		res.Kind = model.KindInAdvance
	}
	for i, t := range res.Tables {
		if full, ok := h.Venue.Lookup(t.ID); ok {
			res.Tables[i] = full
		}
	}
	return res, ""
}

package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-allocation/internal/locks"
	"github.com/iliyamo/table-allocation/internal/model"
)

// LockHandler serves /v1/locks for manual holds, e.g. a table kept free
// for a walk-in or blocked for maintenance.
type LockHandler struct {
	Locks    *locks.Table
	Location *time.Location
}

type lockRequest struct {
	TableID   int    `json:"table_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// window parses a date and HH:MM bounds in the handler's zone.
func (h *LockHandler) window(date, start, end string) (time.Time, time.Time, error) {
	r := model.Reservation{DateString: date, StartTime: start, EndTime: end}
	return r.Window(h.Location)
}

func (h *LockHandler) bind(c echo.Context) (lockRequest, time.Time, time.Time, error) {
	var body lockRequest
	if err := c.Bind(&body); err != nil {
		return body, time.Time{}, time.Time{}, err
	}
	start, end, err := h.window(body.Date, body.StartTime, body.EndTime)
	return body, start, end, err
}

// Create handles POST /v1/locks.
func (h *LockHandler) Create(c echo.Context) error {
	body, start, end, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid lock request")
	}
	if body.TableID <= 0 {
		return badRequest(c, "table_id is required")
	}
	h.Locks.Lock(body.TableID, start, end)
	return c.JSON(http.StatusCreated, echo.Map{"table_id": body.TableID, "start": start, "end": end})
}

// Delete handles DELETE /v1/locks. Only a hold with exactly the given
// bounds is removed.
func (h *LockHandler) Delete(c echo.Context) error {
	body, start, end, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid lock request")
	}
	n := h.Locks.Unlock(body.TableID, start, end)
	if n == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no matching hold"})
	}
	return c.JSON(http.StatusOK, echo.Map{"released": n})
}

// Get handles GET /v1/locks/:table_id. With ?date=&start=&end= it also
// reports whether that window is locked.
func (h *LockHandler) Get(c echo.Context) error {
	id, ok := intParam(c, "table_id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	out := echo.Map{"table_id": id, "intervals": h.Locks.Intervals(id)}
	if date := c.QueryParam("date"); date != "" {
		start, end, err := h.window(date, c.QueryParam("start"), c.QueryParam("end"))
		if err != nil {
			return badRequest(c, "invalid window")
		}
		out["locked"] = h.Locks.IsLocked(id, start, end)
	}
	return c.JSON(http.StatusOK, out)
}

// Package handler exposes assignment, layout and lock operations over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-allocation/internal/assign"
	"github.com/iliyamo/table-allocation/internal/layout"
	"github.com/iliyamo/table-allocation/internal/model"
)

var errBadParams = errors.New("bad path parameters")

// layoutParams reads :date and :category.
func layoutParams(c echo.Context) (time.Time, model.Category, error) {
	d, err := time.Parse(model.DateLayout, c.Param("date"))
	if err != nil {
		return time.Time{}, "", errBadParams
	}
	cat, err := model.ParseCategory(c.Param("category"))
	if err != nil {
		return time.Time{}, "", errBadParams
	}
	return d, cat, nil
}

func intParam(c echo.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	return n, err == nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// assignStatus maps an assignment outcome to an HTTP status.
func assignStatus(err error) int {
	switch {
	case errors.Is(err, assign.ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, assign.ErrTableLocked), errors.Is(err, assign.ErrNoTablesLeft):
		return http.StatusConflict
	case errors.Is(err, assign.ErrInsufficientTables):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidWindow):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func assignError(c echo.Context, err error) error {
	body := echo.Map{"error": assign.Code(err), "message": err.Error()}
	var ae *assign.Error
	if errors.As(err, &ae) && ae.TableID != 0 {
		body["table_id"] = ae.TableID
	}
	status := assignStatus(err)
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("assignment failed: %v", err)
	}
	return c.JSON(status, body)
}

// layoutError maps layout edit failures.
func layoutError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, layout.ErrTableNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, layout.ErrInvalidPlacement):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}
	c.Logger().Errorf("layout update failed: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update layout"})
}

package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-allocation/internal/adjacency"
	"github.com/iliyamo/table-allocation/internal/assign"
	"github.com/iliyamo/table-allocation/internal/handler"
	"github.com/iliyamo/table-allocation/internal/layout"
	"github.com/iliyamo/table-allocation/internal/locks"
	"github.com/iliyamo/table-allocation/internal/service"
	"github.com/iliyamo/table-allocation/internal/utils"
	"github.com/iliyamo/table-allocation/internal/venue"
)

const secret = "router-secret"

type api struct {
	e       *echo.Echo
	staff   string
	manager string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	reg, err := venue.New(venue.Config{
		Grid:            venue.GridConfig{Rows: 9, Cols: 12},
		AssignmentOrder: []int{1, 2, 3},
		Tables: []venue.TableConfig{
			{ID: 1, Name: "T1", MaxCapacity: 2, Row: 0, Column: 0},
			{ID: 2, Name: "T2", MaxCapacity: 2, Row: 0, Column: 3},
			{ID: 3, Name: "T3", MaxCapacity: 4, Row: 0, Column: 6},
		},
	})
	if err != nil {
		t.Fatalf("venue: %v", err)
	}
	cache := layout.New(reg, nil, layout.WithDerive(adjacency.Geometric))
	lt := locks.New()
	source := assign.NewMemorySource()
	engine := assign.NewEngine(reg, cache, lt, source)
	alloc := service.NewAllocator(engine, cache, lt, source, nil)

	e := echo.New()
	RegisterRoutes(e)
	RegisterAPI(e, Handlers{
		Assignments: &handler.AssignmentHandler{Alloc: alloc, Venue: reg},
		Layouts:     &handler.LayoutHandler{Alloc: alloc, Layouts: cache, Venue: reg, Source: source},
		Locks:       &handler.LockHandler{Locks: lt, Location: time.UTC},
	}, secret)

	mint := func(role string) string {
		tok, err := utils.NewAccessToken(secret, "staff-1", role, time.Hour)
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		return "Bearer " + tok.Token
	}
	return &api{e: e, staff: mint(utils.RoleStaff), manager: mint(utils.RoleManager)}
}

func (a *api) do(t *testing.T, method, path, auth string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func reservationBody(party int, start, end string, forced *int) map[string]any {
	body := map[string]any{
		"reservation": map[string]any{
			"name":            "Rossi",
			"numberOfPersons": party,
			"dateString":      "2026-03-14",
			"category":        "dinner",
			"startTime":       start,
			"endTime":         end,
		},
	}
	if forced != nil {
		body["forced_table_id"] = *forced
	}
	return body
}

func tableIDs(t *testing.T, out map[string]any) []int {
	t.Helper()
	raw, ok := out["tables"].([]any)
	if !ok {
		t.Fatalf("no tables in %v", out)
	}
	ids := make([]int, len(raw))
	for i, r := range raw {
		ids[i] = int(r.(map[string]any)["id"].(float64))
	}
	return ids
}

func TestHealthIsPublic(t *testing.T) {
	a := newAPI(t)
	rec, _ := a.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestAPIRequiresToken(t *testing.T) {
	a := newAPI(t)
	rec, _ := a.do(t, http.MethodGet, "/v1/layouts/2026-03-14/dinner", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAssignmentFlow(t *testing.T) {
	a := newAPI(t)

	rec, out := a.do(t, http.MethodPost, "/v1/assignments", a.staff, reservationBody(4, "19:00", "21:00", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("assign: %d %s", rec.Code, rec.Body.String())
	}
	if ids := tableIDs(t, out); len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("expected [1 2], got %v", ids)
	}
	first := out["reservation"]

	one := 1
	rec, out = a.do(t, http.MethodPost, "/v1/assignments", a.staff, reservationBody(2, "20:00", "22:00", &one))
	if rec.Code != http.StatusConflict || out["error"] != "table_locked" || out["table_id"] != float64(1) {
		t.Fatalf("expected table_locked conflict, got %d %v", rec.Code, out)
	}

	rec, out = a.do(t, http.MethodPost, "/v1/assignments", a.staff, reservationBody(9, "19:00", "21:00", nil))
	if rec.Code != http.StatusConflict && rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected a refusal, got %d %v", rec.Code, out)
	}

	rec, out = a.do(t, http.MethodGet, "/v1/locks/1?date=2026-03-14&start=19:30&end=20:00", a.staff, nil)
	if rec.Code != http.StatusOK || out["locked"] != true {
		t.Fatalf("expected table 1 locked, got %d %v", rec.Code, out)
	}

	rec, out = a.do(t, http.MethodDelete, "/v1/assignments", a.staff, map[string]any{"reservation": first})
	if rec.Code != http.StatusOK || out["released"] != float64(2) {
		t.Fatalf("release: %d %v", rec.Code, out)
	}
	rec, out = a.do(t, http.MethodGet, "/v1/locks/1?date=2026-03-14&start=19:30&end=20:00", a.staff, nil)
	if rec.Code != http.StatusOK || out["locked"] != false {
		t.Fatalf("expected table 1 free, got %d %v", rec.Code, out)
	}
}

func TestAssignmentValidation(t *testing.T) {
	a := newAPI(t)
	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"zero party", reservationBody(0, "19:00", "21:00", nil), http.StatusBadRequest},
		{"inverted window", reservationBody(2, "21:00", "19:00", nil), http.StatusBadRequest},
		{"unknown forced table", reservationBody(2, "19:00", "21:00", func() *int { v := 42; return &v }()), http.StatusNotFound},
		{"garbage", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := a.do(t, http.MethodPost, "/v1/assignments", a.staff, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d %v", tt.status, rec.Code, out)
			}
		})
	}
}

func TestLayoutEndpoints(t *testing.T) {
	a := newAPI(t)
	base := "/v1/layouts/2026-03-14/dinner"

	rec, out := a.do(t, http.MethodGet, base, a.staff, nil)
	if rec.Code != http.StatusOK || out["key"] != "2026-03-14-dinner" || len(tableIDs(t, out)) != 3 {
		t.Fatalf("get: %d %v", rec.Code, out)
	}

	rec, _ = a.do(t, http.MethodPatch, base+"/tables/3", a.staff, map[string]any{"row": 3, "column": 0})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff must not edit layouts, got %d", rec.Code)
	}
	rec, out = a.do(t, http.MethodPatch, base+"/tables/3", a.manager, map[string]any{"row": 3, "column": 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("move: %d %v", rec.Code, out)
	}
	rec, _ = a.do(t, http.MethodPatch, base+"/tables/3", a.manager, map[string]any{"row": 0, "column": 1})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overlapping move must be rejected, got %d", rec.Code)
	}

	rec, out = a.do(t, http.MethodGet, base+"/cells?row=4&col=1", a.staff, nil)
	if rec.Code != http.StatusOK || out["id"] != float64(3) {
		t.Fatalf("cell lookup: %d %v", rec.Code, out)
	}
	rec, _ = a.do(t, http.MethodGet, base+"/cells?row=8&col=11", a.staff, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty cell: expected 404, got %d", rec.Code)
	}

	rec, out = a.do(t, http.MethodGet, base+"/tables/1/adjacency", a.staff, nil)
	if rec.Code != http.StatusOK || out["count"] != float64(2) {
		t.Fatalf("adjacency: %d %v", rec.Code, out)
	}

	rec, out = a.do(t, http.MethodPost, base+"/reset", a.manager, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: %d %v", rec.Code, out)
	}
	rec, out = a.do(t, http.MethodGet, base+"/cells?row=4&col=1", a.staff, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("reset did not move table 3 back: %d %v", rec.Code, out)
	}

	rec, _ = a.do(t, http.MethodGet, "/v1/layouts/14-03-2026/dinner", a.staff, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", rec.Code)
	}
}

func TestManualLocks(t *testing.T) {
	a := newAPI(t)
	lock := map[string]any{"table_id": 2, "date": "2026-03-14", "start_time": "19:00", "end_time": "21:00"}

	rec, _ := a.do(t, http.MethodPost, "/v1/locks", a.staff, lock)
	if rec.Code != http.StatusCreated {
		t.Fatalf("lock: %d", rec.Code)
	}
	rec, out := a.do(t, http.MethodPost, "/v1/assignments", a.staff, reservationBody(4, "19:00", "21:00", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("assign: %d %v", rec.Code, out)
	}
	if ids := tableIDs(t, out); len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("expected the locked table to be skipped, got %v", ids)
	}

	rec, _ = a.do(t, http.MethodDelete, "/v1/locks", a.staff, lock)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlock: %d", rec.Code)
	}
	rec, _ = a.do(t, http.MethodDelete, "/v1/locks", a.staff, lock)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second unlock: expected 404, got %d", rec.Code)
	}
}

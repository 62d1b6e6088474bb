package venue

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iliyamo/table-allocation/internal/model"
)

const sample = `
name: koenji
grid: {rows: 12, cols: 12}
grace_period: 10m
assignment_order: [3, 1]
tables:
  - {id: 1, name: A, max_capacity: 2, row: 0, column: 0}
  - {id: 2, name: B, max_capacity: 2, row: 0, column: 3}
  - {id: 3, name: C, max_capacity: 4, row: 0, column: 6, width: 4}
  - {id: 4, name: D, max_capacity: 2, row: 0, column: 0, visible: false}
`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Name() != "koenji" {
		t.Fatalf("name = %q", r.Name())
	}
	if rows, cols := r.GridSize(); rows != 12 || cols != 12 {
		t.Fatalf("grid = %dx%d", rows, cols)
	}
	if r.GracePeriod() != 10*time.Minute {
		t.Fatalf("grace = %v", r.GracePeriod())
	}
	if r.PropagationDays() != 60 {
		t.Fatalf("propagation default = %d", r.PropagationDays())
	}
	tables := r.Tables()
	if len(tables) != 4 || tables[0].ID != 1 || tables[3].ID != 4 {
		t.Fatalf("unexpected tables: %+v", tables)
	}
	if tables[0].Width != 3 || tables[0].Height != 3 {
		t.Fatalf("footprint default not applied: %+v", tables[0])
	}
	if !tables[0].IsVisible || tables[3].IsVisible {
		t.Fatalf("visibility not decoded: %+v", tables)
	}
	if d, ok := r.Lookup(3); !ok || d.Width != 4 {
		t.Fatalf("Lookup(3) = %+v,%v", d, ok)
	}
	// mutating the copy must not leak into the registry
	tables[0].Name = "changed"
	if a, _ := r.Lookup(1); a.Name != "A" {
		t.Fatalf("Tables() returned an alias")
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no grid", `tables: [{id: 1, max_capacity: 2}]`},
		{"no tables", `grid: {rows: 5, cols: 5}`},
		{"duplicate id", `grid: {rows: 9, cols: 9}
tables: [{id: 1, max_capacity: 2}, {id: 1, max_capacity: 2, row: 4}]`},
		{"zero capacity", `grid: {rows: 9, cols: 9}
tables: [{id: 1}]`},
		{"outside grid", `grid: {rows: 4, cols: 4}
tables: [{id: 1, max_capacity: 2, row: 2, column: 2}]`},
		{"overlap", `grid: {rows: 9, cols: 9}
tables: [{id: 1, max_capacity: 2}, {id: 2, max_capacity: 2, row: 1, column: 1}]`},
		{"unknown order id", `grid: {rows: 9, cols: 9}
assignment_order: [9]
tables: [{id: 1, max_capacity: 2}]`},
		{"repeated order id", `grid: {rows: 9, cols: 9}
assignment_order: [1, 1]
tables: [{id: 1, max_capacity: 2}, {id: 2, max_capacity: 2, column: 4}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestOrdering(t *testing.T) {
	o := NewOrdering([]int{5, 2, 9})
	in := []model.Table{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 5}, {ID: 9}}
	got := o.Sort(in)
	want := []int{5, 2, 9, 1, 3}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %d, want %d (%+v)", i, got[i].ID, id, got)
		}
	}
	if in[0].ID != 1 {
		t.Fatalf("Sort must not reorder its input")
	}
}

func TestOrderingRepeatedIDsRankUnlistedLast(t *testing.T) {
	o := NewOrdering([]int{3, 3, 1})
	if r := o.Rank(model.Table{ID: 1}); r != 2 {
		t.Fatalf("rank of table 1: got %d, want 2", r)
	}
	unlisted := o.Rank(model.Table{ID: 0})
	if unlisted <= o.Rank(model.Table{ID: 1}) {
		t.Fatalf("unlisted rank %d must follow every listed table", unlisted)
	}
	got := o.Sort([]model.Table{{ID: 0}, {ID: 1}, {ID: 3}})
	want := []int{3, 1, 0}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %d, want %d", i, got[i].ID, id)
		}
	}
}

func TestDefault(t *testing.T) {
	r := Default()
	if len(r.Tables()) == 0 {
		t.Fatalf("default venue has no tables")
	}
}

func TestReadConfigThenOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venue.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if cfg.GracePeriod != 10*time.Minute {
		t.Fatalf("grace not decoded: %v", cfg.GracePeriod)
	}
	cfg.GracePeriod = time.Minute
	cfg.PropagationDays = 7
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if r.GracePeriod() != time.Minute || r.PropagationDays() != 7 {
		t.Fatalf("overrides lost: %v %d", r.GracePeriod(), r.PropagationDays())
	}
	if _, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

// Package grid keeps the floor occupancy map: one cell per unit of the
// coordinate space, each holding the ID of the table covering it. The grid
// is derived from a layout and rebuilt whenever the active table set
// changes; it is never persisted.
package grid

import "github.com/iliyamo/table-allocation/internal/model"

const emptyCell = -1

// Grid is a dense rows×cols occupancy map stored row-major.
type Grid struct {
	Rows  int
	Cols  int
	cells []int // index = row*Cols + col
}

// New returns an empty grid.
func New(rows, cols int) *Grid {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	g := &Grid{Rows: rows, Cols: cols, cells: make([]int, rows*cols)}
	g.reset()
	return g
}

func (g *Grid) reset() {
	for i := range g.cells {
		g.cells[i] = emptyCell
	}
}

// Initialize clears the grid and marks the footprint of every table.
// Footprints reaching outside the grid are clamped, not rejected.
func (g *Grid) Initialize(tables []model.Table) {
	g.reset()
	for _, t := range tables {
		g.Mark(t)
	}
}

// Mark claims the cells covered by t.
func (g *Grid) Mark(t model.Table) { g.fill(t, t.ID) }

// Clear releases the cells covered by t. Cells claimed by another table
// are left alone.
func (g *Grid) Clear(t model.Table) {
	g.each(t, func(idx int) {
		if g.cells[idx] == t.ID {
			g.cells[idx] = emptyCell
		}
	})
}

func (g *Grid) fill(t model.Table, v int) {
	g.each(t, func(idx int) { g.cells[idx] = v })
}

// each visits the in-bounds cells of t's footprint.
func (g *Grid) each(t model.Table, fn func(idx int)) {
	r0, r1 := clamp(t.Row, 0, g.Rows), clamp(t.Row+t.Height, 0, g.Rows)
	c0, c1 := clamp(t.Column, 0, g.Cols), clamp(t.Column+t.Width, 0, g.Cols)
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			fn(r*g.Cols + c)
		}
	}
}

// At returns the ID of the table claiming (row, col).
func (g *Grid) At(row, col int) (int, bool) {
	if !g.inBounds(row, col) {
		return 0, false
	}
	id := g.cells[row*g.Cols+col]
	return id, id != emptyCell
}

// InBounds reports whether t's whole footprint lies on the grid.
func (g *Grid) InBounds(t model.Table) bool {
	if t.Width <= 0 || t.Height <= 0 {
		return false
	}
	return t.Row >= 0 && t.Column >= 0 &&
		t.Row+t.Height <= g.Rows && t.Column+t.Width <= g.Cols
}

// CanPlace reports whether t fits on the grid without intersecting any
// table in among. The table itself and excludingID are skipped.
func (g *Grid) CanPlace(t model.Table, excludingID int, among []model.Table) bool {
	if !g.InBounds(t) {
		return false
	}
	for _, o := range among {
		if o.ID == t.ID || o.ID == excludingID {
			continue
		}
		if t.Intersects(o) {
			return false
		}
	}
	return true
}

// FindTable returns the first table in among whose footprint covers
// (row, col).
func FindTable(row, col int, among []model.Table) (model.Table, bool) {
	for _, t := range among {
		if t.Contains(row, col) {
			return t, true
		}
	}
	return model.Table{}, false
}

func (g *Grid) inBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < g.Rows && col < g.Cols
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

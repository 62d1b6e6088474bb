// Package adjacency finds tables that sit flush against each other on the
// grid, which is how merged tables are recognised.
package adjacency

import (
	"github.com/iliyamo/table-allocation/internal/model"
)

// Side names one of the four neighbour positions.
type Side string

const (
	Top    Side = "top"
	Bottom Side = "bottom"
	Left   Side = "left"
	Right  Side = "right"
)

// Sides lists the neighbour positions in a stable order.
var Sides = []Side{Top, Bottom, Left, Right}

// Neighbours are always compared against the standard table footprint.
const neighborSize = 3

type cell struct{ row, col int }

// expected returns the top-left cell a standard table would occupy on each
// side of t.
func expected(t model.Table) map[Side]cell {
	return map[Side]cell{
		Top:    {t.Row - neighborSize, t.Column},
		Bottom: {t.Row + t.Height, t.Column},
		Left:   {t.Row, t.Column - neighborSize},
		Right:  {t.Row, t.Column + t.Width},
	}
}

// Neighbors returns the number of standard-size tables in active that sit
// exactly at t's top, bottom, left or right, and the table found on each
// side. t itself is never its own neighbour.
func Neighbors(t model.Table, active []model.Table) (int, map[Side]model.Table) {
	found := make(map[Side]model.Table, len(Sides))
	want := expected(t)
	for _, side := range Sides {
		pos := want[side]
		for _, o := range active {
			if o.ID == t.ID || o.Width != neighborSize || o.Height != neighborSize {
				continue
			}
			if o.Row == pos.row && o.Column == pos.col {
				found[side] = o
				break
			}
		}
	}
	return len(found), found
}

// SharedReservationNeighbors is Neighbors restricted to tables that belong
// to some active reservation which also holds t.
func SharedReservationNeighbors(t model.Table, active []model.Table, reservations []model.Reservation) (int, map[Side]model.Table) {
	shared := make(map[int]bool)
	for _, r := range reservations {
		if !r.IsOccupying() || !r.HasTable(t.ID) {
			continue
		}
		for _, rt := range r.Tables {
			if rt.ID != t.ID {
				shared[rt.ID] = true
			}
		}
	}
	if len(shared) == 0 {
		return 0, map[Side]model.Table{}
	}
	candidates := make([]model.Table, 0, len(shared))
	for _, o := range active {
		if shared[o.ID] {
			candidates = append(candidates, o)
		}
	}
	return Neighbors(t, candidates)
}

// Recompute returns a copy of tables with AdjacentCount and
// ActiveReservationAdjacentCount refreshed. Only visible tables count as
// neighbours; hidden tables get zero for both.
func Recompute(tables []model.Table, reservations []model.Reservation) []model.Table {
	out := Geometric(tables)
	active := make([]model.Table, 0, len(out))
	for _, t := range out {
		if t.IsVisible {
			active = append(active, t)
		}
	}
	for i, t := range out {
		if !t.IsVisible {
			out[i].ActiveReservationAdjacentCount = 0
			continue
		}
		out[i].ActiveReservationAdjacentCount, _ = SharedReservationNeighbors(t, active, reservations)
	}
	return out
}

// Geometric refreshes only AdjacentCount, leaving the reservation-based
// counter untouched. It needs no reservation data, so the layout cache can
// apply it on every store.
func Geometric(tables []model.Table) []model.Table {
	out := model.CloneTables(tables)
	active := make([]model.Table, 0, len(out))
	for _, t := range out {
		if t.IsVisible {
			active = append(active, t)
		}
	}
	for i, t := range out {
		if !t.IsVisible {
			out[i].AdjacentCount = 0
			continue
		}
		out[i].AdjacentCount, _ = Neighbors(t, active)
	}
	return out
}

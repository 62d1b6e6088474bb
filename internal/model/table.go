package model

// Table represents a physical seating resource placed on the floor grid.
// Tables are value objects: an update replaces the stored copy wholesale
// and tables are never destroyed, only hidden via IsVisible.
//
// Fields:
//
//	ID                             – stable identity of the table.
//	Name                           – display name shown to staff.
//	MaxCapacity                    – maximum number of guests seated.
//	Row, Column                    – top-left grid cell of the footprint.
//	Width, Height                  – footprint size in grid cells.
//	IsVisible                      – hidden tables are ignored by placement
//	                                 and assignment.
//	AdjacentCount                  – number of geometric neighbours.
//	ActiveReservationAdjacentCount – neighbours sharing a reservation with
//	                                 this table.
type Table struct {
	ID                             int    `json:"id"`
	Name                           string `json:"name"`
	MaxCapacity                    int    `json:"maxCapacity"`
	Row                            int    `json:"row"`
	Column                         int    `json:"column"`
	Width                          int    `json:"width"`
	Height                         int    `json:"height"`
	IsVisible                      bool   `json:"isVisible"`
	AdjacentCount                  int    `json:"adjacentCount"`
	ActiveReservationAdjacentCount int    `json:"activeReservationAdjacentCount"`
}

// Contains reports whether the cell (row, col) lies inside the footprint.
func (t Table) Contains(row, col int) bool {
	return row >= t.Row && row < t.Row+t.Height &&
		col >= t.Column && col < t.Column+t.Width
}

// Intersects reports whether the bounding boxes of t and o overlap. Two
// rectangles are disjoint iff one lies entirely left of, right of, above or
// below the other.
func (t Table) Intersects(o Table) bool {
	if t.Column+t.Width <= o.Column || o.Column+o.Width <= t.Column {
		return false
	}
	if t.Row+t.Height <= o.Row || o.Row+o.Height <= t.Row {
		return false
	}
	return true
}

// Moved returns a copy of t positioned at (row, col).
func (t Table) Moved(row, col int) Table {
	t.Row = row
	t.Column = col
	return t
}

// CloneTables returns a copy of the slice so callers cannot alias cached
// layouts.
func CloneTables(tables []Table) []Table {
	if tables == nil {
		return nil
	}
	out := make([]Table, len(tables))
	copy(out, tables)
	return out
}

// TotalCapacity sums MaxCapacity over the tables.
func TotalCapacity(tables []Table) int {
	n := 0
	for _, t := range tables {
		n += t.MaxCapacity
	}
	return n
}

// Package locks records advisory time holds on tables. A hold is added when
// a table is assigned and removed only when released explicitly; holds are
// not reconciled with the reservation's own lifecycle.
package locks

import (
	"sync"
	"time"
)

// Interval is a half-open [Start, End) hold.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether i and [start, end) share any instant.
func (i Interval) Overlaps(start, end time.Time) bool {
	return start.Before(i.End) && i.Start.Before(end)
}

// Table maps table IDs to their holds.
type Table struct {
	mu    sync.Mutex
	holds map[int][]Interval
}

// New returns an empty lock table.
func New() *Table {
	return &Table{holds: make(map[int][]Interval)}
}

// Lock appends a hold. Overlapping holds on the same table may coexist.
func (l *Table) Lock(tableID int, start, end time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holds[tableID] = append(l.holds[tableID], Interval{Start: start, End: end})
}

// Unlock removes every hold on tableID exactly equal to [start, end) and
// reports how many were removed.
func (l *Table) Unlock(tableID int, start, end time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	list := l.holds[tableID]
	kept := list[:0]
	removed := 0
	for _, iv := range list {
		if iv.Start.Equal(start) && iv.End.Equal(end) {
			removed++
			continue
		}
		kept = append(kept, iv)
	}
	if len(kept) == 0 {
		delete(l.holds, tableID)
	} else {
		l.holds[tableID] = kept
	}
	return removed
}

// IsLocked reports whether any hold on tableID overlaps [start, end).
func (l *Table) IsLocked(tableID int, start, end time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, iv := range l.holds[tableID] {
		if iv.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// Holds reports whether tableID carries a hold exactly equal to [start, end).
func (l *Table) Holds(tableID int, start, end time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, iv := range l.holds[tableID] {
		if iv.Start.Equal(start) && iv.End.Equal(end) {
			return true
		}
	}
	return false
}

// Intervals returns a copy of the holds on tableID.
func (l *Table) Intervals(tableID int) []Interval {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Interval, len(l.holds[tableID]))
	copy(out, l.holds[tableID])
	return out
}

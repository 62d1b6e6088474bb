// Package assign picks tables for a reservation. A choice prefers a
// contiguous run of tables in the venue's canonical order and falls back to
// any free tables whose capacity covers the party.
package assign

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/table-allocation/internal/layout"
	"github.com/iliyamo/table-allocation/internal/locks"
	"github.com/iliyamo/table-allocation/internal/model"
	"github.com/iliyamo/table-allocation/internal/venue"
)

// Engine assigns tables. Assignments sharing a (date, category) are
// serialised; different layouts proceed in parallel.
type Engine struct {
	layouts  *layout.Cache
	locks    *locks.Table
	source   ReservationSource
	ordering venue.Ordering
	grace    time.Duration
	loc      *time.Location

	mu     sync.Mutex
	perKey map[layout.Key]*sync.Mutex
}

// Option customises an Engine.
type Option func(*Engine)

// WithGracePeriod overrides the venue's grace period.
func WithGracePeriod(d time.Duration) Option {
	return func(e *Engine) { e.grace = d }
}

// WithLocation sets the zone reservation dates and times are read in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewEngine wires an Engine over a layout cache, lock table and reservation
// source. Ordering and grace period come from reg.
func NewEngine(reg *venue.Registry, layouts *layout.Cache, lt *locks.Table, source ReservationSource, opts ...Option) *Engine {
	e := &Engine{
		layouts:  layouts,
		locks:    lt,
		source:   source,
		ordering: reg.Ordering(),
		grace:    reg.GracePeriod(),
		loc:      time.UTC,
		perKey:   make(map[layout.Key]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location returns the zone the engine reads reservation times in.
func (e *Engine) Location() *time.Location { return e.loc }

// GracePeriod returns the slack appended to other reservations' end times.
func (e *Engine) GracePeriod() time.Duration { return e.grace }

// Lock serialises work on one layout key. The returned func releases it.
func (e *Engine) Lock(k layout.Key) func() {
	e.mu.Lock()
	m, ok := e.perKey[k]
	if !ok {
		m = &sync.Mutex{}
		e.perKey[k] = m
	}
	e.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Assign chooses tables for res. When forced is non-nil the result starts
// with that table. On success every chosen table is held in the lock table
// for the reservation window; on failure nothing changes.
//
// The caller must hold the key lock (see Lock) when it needs the layout to
// stay unchanged between assignment and its own follow-up writes; AssignLocked
// is the variant for that case.
func (e *Engine) Assign(ctx context.Context, res model.Reservation, forced *int) ([]model.Table, error) {
	day, err := res.Date(e.loc)
	if err != nil {
		return nil, newError(ErrUnknown, 0, "", err)
	}
	unlock := e.Lock(layout.NewKey(day, res.Category))
	defer unlock()
	return e.AssignLocked(ctx, res, forced)
}

// AssignLocked is Assign for callers already holding the key lock.
func (e *Engine) AssignLocked(ctx context.Context, res model.Reservation, forced *int) ([]model.Table, error) {
	if res.NumberOfPersons < 1 {
		return nil, newError(ErrUnknown, 0, fmt.Sprintf("party size %d", res.NumberOfPersons), nil)
	}
	start, end, err := res.Window(e.loc)
	if err != nil {
		return nil, newError(ErrUnknown, 0, "", err)
	}
	day, _ := res.Date(e.loc)

	tables := layout.Visible(e.layouts.Load(day, res.Category))
	if len(tables) == 0 {
		return nil, newError(ErrNoTablesLeft, 0, "layout has no visible tables", nil)
	}
	reservations, err := e.source.ReservationsOn(ctx, res.DateString)
	if err != nil {
		return nil, newError(ErrUnknown, 0, "list reservations", err)
	}

	// Only the stored record proves which holds are the requester's own;
	// the tables listed on res come from the caller.
	stored, _ := Find(reservations, res.ID)

	s := search{
		party: res.NumberOfPersons,
		occupied: func(t model.Table) bool {
			return IsOccupied(t, reservations, res.DateString, start, end, res.ID, e.grace, e.loc)
		},
		held: func(t model.Table) bool {
			return !stored.HasTable(t.ID) && e.locks.IsLocked(t.ID, start, end)
		},
	}
	ordered := e.ordering.Sort(tables)

	var chosen []model.Table
	if forced != nil {
		chosen, err = s.forced(ordered, *forced)
	} else {
		chosen, err = s.auto(ordered)
	}
	if err != nil {
		return nil, err
	}

	for _, t := range chosen {
		if !e.locks.Holds(t.ID, start, end) {
			e.locks.Lock(t.ID, start, end)
		}
	}
	return chosen, nil
}

// search holds the per-request predicates of one assignment.
type search struct {
	party    int
	occupied func(model.Table) bool // another active reservation sits there
	held     func(model.Table) bool // locked by someone other than the requester
}

func (s search) auto(ordered []model.Table) ([]model.Table, error) {
	candidates := s.unlocked(ordered)
	if len(candidates) == 0 {
		return nil, newError(ErrNoTablesLeft, 0, "every table is locked", nil)
	}
	if run, ok := s.contiguous(candidates); ok {
		return run, nil
	}
	if picked, ok := s.greedy(candidates, nil); ok {
		return picked, nil
	}
	return nil, newError(ErrInsufficientTables, 0, fmt.Sprintf("party of %d", s.party), nil)
}

func (s search) forced(ordered []model.Table, id int) ([]model.Table, error) {
	idx := -1
	for i, t := range ordered {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, newError(ErrTableNotFound, id, "", nil)
	}
	first := ordered[idx]
	if s.held(first) || s.occupied(first) {
		return nil, newError(ErrTableLocked, id, "", nil)
	}

	// ordered[idx] is the forced table and passed both checks above, so the
	// block starts with it.
	if run, ok := s.contiguous(s.unlocked(ordered[idx:])); ok {
		return run, nil
	}
	if picked, ok := s.greedy(s.unlocked(ordered), []model.Table{first}); ok {
		return picked, nil
	}
	return nil, newError(ErrInsufficientTables, id, fmt.Sprintf("party of %d", s.party), nil)
}

func (s search) unlocked(tables []model.Table) []model.Table {
	out := make([]model.Table, 0, len(tables))
	for _, t := range tables {
		if !s.held(t) {
			out = append(out, t)
		}
	}
	return out
}

// contiguous walks candidates in order, skips occupied tables and returns
// the accepted prefix as soon as its capacity covers the party. First fit,
// no backtracking.
func (s search) contiguous(candidates []model.Table) ([]model.Table, bool) {
	var run []model.Table
	seats := 0
	for _, t := range candidates {
		if s.occupied(t) {
			continue
		}
		run = append(run, t)
		seats += t.MaxCapacity
		if seats >= s.party {
			return run, true
		}
	}
	return nil, false
}

// greedy extends seed with unoccupied candidates in order until the party
// fits.
func (s search) greedy(candidates, seed []model.Table) ([]model.Table, bool) {
	picked := model.CloneTables(seed)
	seats := model.TotalCapacity(picked)
	if len(picked) > 0 && seats >= s.party {
		return picked, true
	}
	inSeed := make(map[int]bool, len(seed))
	for _, t := range seed {
		inSeed[t.ID] = true
	}
	for _, t := range candidates {
		if inSeed[t.ID] || s.occupied(t) {
			continue
		}
		picked = append(picked, t)
		seats += t.MaxCapacity
		if seats >= s.party {
			return picked, true
		}
	}
	return nil, false
}

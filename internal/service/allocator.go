// Package service runs assignments end to end: choose tables, release the
// holds a reassignment gave up, refresh adjacency, write the layout back
// and announce the result.
package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/table-allocation/internal/adjacency"
	"github.com/iliyamo/table-allocation/internal/assign"
	"github.com/iliyamo/table-allocation/internal/layout"
	"github.com/iliyamo/table-allocation/internal/locks"
	"github.com/iliyamo/table-allocation/internal/model"
	q "github.com/iliyamo/table-allocation/internal/queue"
)

// Recorder is implemented by reservation sources that accept writes. When
// the configured source is one, the allocator stores each reservation with
// its new tables.
type Recorder interface {
	Record(ctx context.Context, r model.Reservation) error
}

// Allocator coordinates the engine, layout cache and lock table.
type Allocator struct {
	engine    *assign.Engine
	layouts   *layout.Cache
	locks     *locks.Table
	source    assign.ReservationSource
	publisher Publisher

	publishTimeout time.Duration
	now            func() time.Time
}

// NewAllocator wires an Allocator. A nil publisher disables events.
func NewAllocator(engine *assign.Engine, layouts *layout.Cache, lt *locks.Table, source assign.ReservationSource, publisher Publisher) *Allocator {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Allocator{
		engine:         engine,
		layouts:        layouts,
		locks:          lt,
		source:         source,
		publisher:      publisher,
		publishTimeout: 5 * time.Second,
		now:            time.Now,
	}
}

func (a *Allocator) keyOf(res model.Reservation) (layout.Key, error) {
	day, err := res.Date(a.engine.Location())
	if err != nil {
		return layout.Key{}, &assign.Error{Reason: assign.ErrUnknown, Err: err}
	}
	return layout.NewKey(day, res.Category), nil
}

// Assign picks tables for res and commits the result. When the source
// already has a record of res, holds on the tables that record lists and
// the new assignment drops are released. The returned reservation carries
// the new tables. Failures leave everything untouched.
func (a *Allocator) Assign(ctx context.Context, res model.Reservation, forced *int) (model.Reservation, error) {
	k, err := a.keyOf(res)
	if err != nil {
		return model.Reservation{}, err
	}
	unlock := a.engine.Lock(k)
	defer unlock()

	// The stored record is read before anything is recorded so it still
	// describes the previous assignment.
	prev, hasPrev := a.stored(ctx, res)

	tables, err := a.engine.AssignLocked(ctx, res, forced)
	if err != nil {
		return model.Reservation{}, err
	}

	if hasPrev {
		start, end, _ := res.Window(a.engine.Location())
		a.releaseDropped(prev, tables, start, end)
	}

	updated := res
	updated.Tables = model.CloneTables(tables)
	if rec, ok := a.source.(Recorder); ok {
		if err := rec.Record(ctx, updated); err != nil {
			log.Printf("allocator: record reservation %s failed: %v", updated.ID, err)
		}
	}
	a.refreshLocked(ctx, k, updated)
	a.publish(updated, forced)
	return updated, nil
}

// Release drops the holds the stored record of res owns: every table it
// lists, for the stored window. The tables listed on res itself are
// ignored so a caller cannot free someone else's hold. Callers invoke it
// when a reservation is canceled, deleted or rescheduled; holds are never
// released on their own. res is recorded with the stored tables.
func (a *Allocator) Release(ctx context.Context, res model.Reservation) (int, error) {
	k, err := a.keyOf(res)
	if err != nil {
		return 0, err
	}
	if _, _, err := res.Window(a.engine.Location()); err != nil {
		return 0, &assign.Error{Reason: assign.ErrUnknown, Err: err}
	}
	unlock := a.engine.Lock(k)
	defer unlock()

	prev, ok := a.stored(ctx, res)
	if !ok {
		return 0, nil
	}
	removed := 0
	if start, end, err := prev.Window(a.engine.Location()); err == nil {
		for _, t := range prev.Tables {
			removed += a.locks.Unlock(t.ID, start, end)
		}
	}
	updated := res
	updated.Tables = model.CloneTables(prev.Tables)
	if rec, ok := a.source.(Recorder); ok {
		if err := rec.Record(ctx, updated); err != nil {
			log.Printf("allocator: record reservation %s failed: %v", updated.ID, err)
		}
	}
	a.refreshLocked(ctx, k, updated)
	return removed, nil
}

// stored looks up the source's record of res. A source failure is logged
// and treated as no record.
func (a *Allocator) stored(ctx context.Context, res model.Reservation) (model.Reservation, bool) {
	reservations, err := a.source.ReservationsOn(ctx, res.DateString)
	if err != nil {
		log.Printf("allocator: list reservations for %s failed: %v", res.DateString, err)
		return model.Reservation{}, false
	}
	return assign.Find(reservations, res.ID)
}

// releaseDropped removes the holds of the previous assignment prev that
// the new one no longer covers. Tables kept for an unchanged window keep
// their hold; everything else is unlocked for prev's window.
func (a *Allocator) releaseDropped(prev model.Reservation, tables []model.Table, start, end time.Time) {
	prevStart, prevEnd, err := prev.Window(a.engine.Location())
	if err != nil {
		return
	}
	sameWindow := prevStart.Equal(start) && prevEnd.Equal(end)
	kept := make(map[int]bool, len(tables))
	for _, t := range tables {
		kept[t.ID] = true
	}
	for _, old := range prev.Tables {
		if sameWindow && kept[old.ID] {
			continue
		}
		a.locks.Unlock(old.ID, prevStart, prevEnd)
	}
}

// SaveLayout validates and stores a full layout for (date, cat) with fresh
// adjacency counters.
func (a *Allocator) SaveLayout(ctx context.Context, tables []model.Table, date time.Time, cat model.Category, rows, cols int) ([]model.Table, error) {
	if err := layout.Validate(tables, rows, cols); err != nil {
		return nil, err
	}
	k := layout.NewKey(date, cat)
	unlock := a.engine.Lock(k)
	defer unlock()
	a.layouts.Save(tables, date, cat)
	return a.refreshLocked(ctx, k, model.Reservation{}), nil
}

// ResetLayout restores the base layout for (date, cat).
func (a *Allocator) ResetLayout(ctx context.Context, date time.Time, cat model.Category) []model.Table {
	k := layout.NewKey(date, cat)
	unlock := a.engine.Lock(k)
	defer unlock()
	a.layouts.Reset(date, cat)
	return a.refreshLocked(ctx, k, model.Reservation{})
}

// MoveTable repositions one table of the (date, cat) layout.
func (a *Allocator) MoveTable(ctx context.Context, date time.Time, cat model.Category, id, row, col int) ([]model.Table, error) {
	k := layout.NewKey(date, cat)
	unlock := a.engine.Lock(k)
	defer unlock()
	if _, err := a.layouts.Move(date, cat, id, row, col); err != nil {
		return nil, err
	}
	return a.refreshLocked(ctx, k, model.Reservation{}), nil
}

// SetTableVisibility shows or hides one table of the (date, cat) layout.
func (a *Allocator) SetTableVisibility(ctx context.Context, date time.Time, cat model.Category, id int, visible bool) ([]model.Table, error) {
	k := layout.NewKey(date, cat)
	unlock := a.engine.Lock(k)
	defer unlock()
	if _, err := a.layouts.SetVisibility(date, cat, id, visible); err != nil {
		return nil, err
	}
	return a.refreshLocked(ctx, k, model.Reservation{}), nil
}

// refreshLocked recomputes adjacency for the layout at k against the day's
// reservations of the same category, with changed substituted for its
// stored version, and saves the result. A zero changed adds nothing.
func (a *Allocator) refreshLocked(ctx context.Context, k layout.Key, changed model.Reservation) []model.Table {
	date := k.Date.Format(model.DateLayout)
	reservations, err := a.source.ReservationsOn(ctx, date)
	if err != nil {
		log.Printf("allocator: list reservations for %s failed: %v; adjacency uses the current reservation only", date, err)
		reservations = nil
	}
	if changed.ID != uuid.Nil {
		reservations = substitute(reservations, changed)
	}
	sameService := reservations[:0:0]
	for _, r := range reservations {
		if r.Category == k.Category {
			sameService = append(sameService, r)
		}
	}
	tables := adjacency.Recompute(a.layouts.Load(k.Date, k.Category), sameService)
	a.layouts.Save(tables, k.Date, k.Category)
	return tables
}

func substitute(reservations []model.Reservation, r model.Reservation) []model.Reservation {
	out := make([]model.Reservation, 0, len(reservations)+1)
	for _, o := range reservations {
		if o.ID != r.ID {
			out = append(out, o)
		}
	}
	return append(out, r)
}

func (a *Allocator) publish(res model.Reservation, forced *int) {
	ev := q.TablesAssignedEvent{
		ReservationID:   res.ID.String(),
		Name:            res.Name,
		Date:            res.DateString,
		Category:        string(res.Category),
		StartTime:       res.StartTime,
		EndTime:         res.EndTime,
		NumberOfPersons: res.NumberOfPersons,
		AssignedAt:      a.now().UTC().Format(time.RFC3339),
	}
	if forced != nil {
		id := *forced
		ev.ForcedTableID = &id
	}
	for _, t := range res.Tables {
		ev.TableIDs = append(ev.TableIDs, t.ID)
		ev.TableNames = append(ev.TableNames, t.Name)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.publishTimeout)
		defer cancel()
		if err := a.publisher.PublishTablesAssigned(ctx, ev); err != nil {
			log.Printf("allocator: publish tables.assigned for %s failed: %v", ev.ReservationID, err)
		}
	}()
}

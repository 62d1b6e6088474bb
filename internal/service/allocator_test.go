package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/table-allocation/internal/adjacency"
	"github.com/iliyamo/table-allocation/internal/assign"
	"github.com/iliyamo/table-allocation/internal/layout"
	"github.com/iliyamo/table-allocation/internal/locks"
	"github.com/iliyamo/table-allocation/internal/model"
	q "github.com/iliyamo/table-allocation/internal/queue"
	"github.com/iliyamo/table-allocation/internal/venue"
)

const day = "2026-03-14"

type chanPublisher struct {
	events chan q.TablesAssignedEvent
	err    error
}

func newChanPublisher() *chanPublisher {
	return &chanPublisher{events: make(chan q.TablesAssignedEvent, 8)}
}

func (p *chanPublisher) PublishTablesAssigned(_ context.Context, ev q.TablesAssignedEvent) error {
	p.events <- ev
	return p.err
}

type fixture struct {
	reg       *venue.Registry
	cache     *layout.Cache
	locks     *locks.Table
	source    *assign.MemorySource
	publisher *chanPublisher
	alloc     *Allocator
}

func newFixture(t *testing.T) *fixture {
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
	f := &fixture{
		reg:       reg,
		cache:     layout.New(reg, nil, layout.WithDerive(adjacency.Geometric)),
		locks:     locks.New(),
		source:    assign.NewMemorySource(),
		publisher: newChanPublisher(),
	}
	engine := assign.NewEngine(reg, f.cache, f.locks, f.source)
	f.alloc = NewAllocator(engine, f.cache, f.locks, f.source, f.publisher)
	return f
}

func reservation(party int, start, end string) model.Reservation {
	return model.Reservation{
		ID:              uuid.New(),
		Name:            "guest",
		NumberOfPersons: party,
		DateString:      day,
		Category:        model.CategoryDinner,
		StartTime:       start,
		EndTime:         end,
		Status:          model.StatusConfirmed,
		Kind:            model.KindInAdvance,
	}
}

func mustDate(t *testing.T) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, day)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func byID(tables []model.Table) map[int]model.Table {
	out := make(map[int]model.Table, len(tables))
	for _, t := range tables {
		out[t.ID] = t
	}
	return out
}

func (f *fixture) event(t *testing.T) q.TablesAssignedEvent {
	t.Helper()
	select {
	case ev := <-f.publisher.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("no event published")
	}
	return q.TablesAssignedEvent{}
}

func TestAssignCommitsLayoutAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := reservation(4, "19:00", "21:00")

	got, err := f.alloc.Assign(ctx, res, nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(got.Tables) != 2 || got.Tables[0].ID != 1 || got.Tables[1].ID != 2 {
		t.Fatalf("expected tables [1 2], got %+v", got.Tables)
	}

	tables := byID(f.cache.Load(mustDate(t), model.CategoryDinner))
	wantAdj := map[int][2]int{1: {1, 1}, 2: {2, 1}, 3: {1, 0}}
	for id, w := range wantAdj {
		tb := tables[id]
		if tb.AdjacentCount != w[0] || tb.ActiveReservationAdjacentCount != w[1] {
			t.Fatalf("table %d: got (%d, %d), want %v", id, tb.AdjacentCount, tb.ActiveReservationAdjacentCount, w)
		}
	}

	stored, ok := f.source.Get(res.ID)
	if !ok || len(stored.Tables) != 2 {
		t.Fatalf("reservation not recorded with its tables: %+v", stored)
	}

	ev := f.event(t)
	if ev.ReservationID != res.ID.String() || len(ev.TableIDs) != 2 || ev.TableNames[1] != "T2" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestReassignReleasesDroppedTables(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := reservation(4, "19:00", "21:00")
	first, err := f.alloc.Assign(ctx, res, nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	f.event(t)

	first.NumberOfPersons = 2
	three := 3
	second, err := f.alloc.Assign(ctx, first, &three)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if len(second.Tables) != 1 || second.Tables[0].ID != 3 {
		t.Fatalf("expected [3], got %+v", second.Tables)
	}
	start, end, _ := res.Window(time.UTC)
	for _, id := range []int{1, 2} {
		if f.locks.IsLocked(id, start, end) {
			t.Fatalf("table %d still held after reassignment", id)
		}
	}
	if !f.locks.IsLocked(3, start, end) {
		t.Fatalf("table 3 not held")
	}
	if ev := f.event(t); ev.ForcedTableID == nil || *ev.ForcedTableID != 3 {
		t.Fatalf("forced table missing from event %+v", ev)
	}
}

func TestReleaseFreesTables(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.alloc.Assign(ctx, reservation(2, "19:00", "21:00"), nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	a.Status = model.StatusCanceled
	n, err := f.alloc.Release(ctx, a)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one hold released, got %d", n)
	}
	b, err := f.alloc.Assign(ctx, reservation(2, "19:00", "21:00"), nil)
	if err != nil {
		t.Fatalf("assign b: %v", err)
	}
	if b.Tables[0].ID != a.Tables[0].ID {
		t.Fatalf("released table %d not reused, got %d", a.Tables[0].ID, b.Tables[0].ID)
	}
}

func TestFailedAssignIsNoOp(t *testing.T) {
	f := newFixture(t)
	_, err := f.alloc.Assign(context.Background(), reservation(20, "19:00", "21:00"), nil)
	if !errors.Is(err, assign.ErrInsufficientTables) {
		t.Fatalf("expected ErrInsufficientTables, got %v", err)
	}
	for _, id := range []int{1, 2, 3} {
		if len(f.locks.Intervals(id)) != 0 {
			t.Fatalf("table %d held after failure", id)
		}
	}
	select {
	case ev := <-f.publisher.events:
		t.Fatalf("event published for failed assignment: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAssignSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	if _, err := f.alloc.Assign(context.Background(), reservation(2, "19:00", "21:00"), nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	f.event(t)
}

func TestAssignMalformedDate(t *testing.T) {
	f := newFixture(t)
	res := reservation(2, "19:00", "21:00")
	res.DateString = "14/03/2026"
	_, err := f.alloc.Assign(context.Background(), res, nil)
	if !errors.Is(err, assign.ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
}

func TestLayoutEditing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := mustDate(t)
	rows, cols := f.reg.GridSize()

	tables, err := f.alloc.MoveTable(ctx, d, model.CategoryDinner, 3, 3, 0)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	moved := byID(tables)
	if moved[3].Row != 3 || moved[1].AdjacentCount != 2 {
		t.Fatalf("unexpected layout after move: %+v", tables)
	}

	if _, err := f.alloc.MoveTable(ctx, d, model.CategoryDinner, 3, 0, 2); !errors.Is(err, layout.ErrInvalidPlacement) {
		t.Fatalf("expected ErrInvalidPlacement, got %v", err)
	}
	if _, err := f.alloc.SetTableVisibility(ctx, d, model.CategoryDinner, 42, false); !errors.Is(err, layout.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}

	overlapping := f.cache.Load(d, model.CategoryDinner)
	overlapping[1] = overlapping[1].Moved(0, 1)
	if _, err := f.alloc.SaveLayout(ctx, overlapping, d, model.CategoryDinner, rows, cols); err == nil {
		t.Fatalf("expected overlapping layout to be rejected")
	}

	reset := f.alloc.ResetLayout(ctx, d, model.CategoryDinner)
	if byID(reset)[3].Row != 0 {
		t.Fatalf("reset did not restore base: %+v", reset)
	}
}

func TestReleaseIgnoresClaimedTables(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.alloc.Assign(ctx, reservation(2, "19:00", "21:00"), nil)
	if err != nil {
		t.Fatalf("assign a: %v", err)
	}
	f.event(t)

	b := reservation(2, "19:00", "21:00")
	b.Tables = a.Tables
	n, err := f.alloc.Release(ctx, b)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no holds released, got %d", n)
	}
	start, end, _ := a.Window(time.UTC)
	if !f.locks.Holds(a.Tables[0].ID, start, end) {
		t.Fatalf("hold of table %d dropped by an unrelated reservation", a.Tables[0].ID)
	}
	if _, ok := f.source.Get(b.ID); ok {
		t.Fatalf("unknown reservation recorded on release")
	}
}

func TestReassignNewWindowReleasesOldHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.alloc.Assign(ctx, reservation(2, "19:00", "21:00"), nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	f.event(t)
	oldStart, oldEnd, _ := first.Window(time.UTC)

	moved := first
	moved.StartTime, moved.EndTime = "21:00", "23:00"
	second, err := f.alloc.Assign(ctx, moved, nil)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	f.event(t)
	if f.locks.IsLocked(first.Tables[0].ID, oldStart, oldEnd) {
		t.Fatalf("old window still held on table %d", first.Tables[0].ID)
	}
	newStart, newEnd, _ := second.Window(time.UTC)
	if !f.locks.Holds(second.Tables[0].ID, newStart, newEnd) {
		t.Fatalf("new window not held on table %d", second.Tables[0].ID)
	}
}

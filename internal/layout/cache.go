// Package layout caches the table arrangement for every (date, category)
// pair. A missing key inherits from the closest earlier key of the same
// category, or from the venue's base tables. Saves propagate forward into
// days that have no layout of their own, and the whole cache is persisted
// as a single blob.
package layout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/table-allocation/internal/grid"
	"github.com/iliyamo/table-allocation/internal/model"
	"github.com/iliyamo/table-allocation/internal/venue"
)

var (
	// ErrTableNotFound is returned when a placement targets a table the
	// layout does not contain.
	ErrTableNotFound = errors.New("table not found in layout")
	// ErrInvalidPlacement is returned when a table would leave the grid or
	// overlap another visible table.
	ErrInvalidPlacement = errors.New("invalid table placement")
)

// Cache owns every layout. One RWMutex guards the whole map so there is a
// single writer at any time.
type Cache struct {
	venue *venue.Registry

	mu      sync.RWMutex
	entries map[Key][]model.Table
	index   map[model.Category][]time.Time // sorted dates per category

	persist *persister
	derive  func([]model.Table) []model.Table
}

// Option customises a Cache.
type Option func(*Cache)

// WithDerive installs a function that recomputes derived table fields
// (such as adjacency counters) on every layout the cache stores.
func WithDerive(fn func([]model.Table) []model.Table) Option {
	return func(c *Cache) { c.derive = fn }
}

// New returns an empty cache seeded from reg. When store is nil the cache
// is memory-only.
func New(reg *venue.Registry, store BlobStore, opts ...Option) *Cache {
	c := &Cache{
		venue:   reg,
		entries: make(map[Key][]model.Table),
		index:   make(map[model.Category][]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	if store != nil {
		c.persist = newPersister(store)
	}
	return c
}

// Load returns the layout for (date, cat). A missing entry is filled from
// the closest earlier date of the same category, or from the base tables,
// and the filled value is stored under the requested key.
func (c *Cache) Load(date time.Time, cat model.Category) []model.Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CloneTables(c.loadLocked(NewKey(date, cat)))
}

func (c *Cache) loadLocked(k Key) []model.Table {
	if tables, ok := c.entries[k]; ok {
		return tables
	}
	if prior, ok := c.priorLocked(k); ok {
		tables := model.CloneTables(c.entries[prior])
		c.setLocked(k, tables)
		return tables
	}
	tables := c.deriveLocked(c.venue.Tables())
	c.setLocked(k, tables)
	return tables
}

func (c *Cache) deriveLocked(tables []model.Table) []model.Table {
	if c.derive == nil {
		return tables
	}
	return c.derive(tables)
}

// priorLocked finds the latest key of the same category strictly before k.
func (c *Cache) priorLocked(k Key) (Key, bool) {
	dates := c.index[k.Category]
	i := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(k.Date) })
	if i == 0 {
		return Key{}, false
	}
	return Key{Date: dates[i-1], Category: k.Category}, true
}

func (c *Cache) setLocked(k Key, tables []model.Table) {
	if _, exists := c.entries[k]; !exists {
		dates := c.index[k.Category]
		i := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(k.Date) })
		dates = append(dates, time.Time{})
		copy(dates[i+1:], dates[i:])
		dates[i] = k.Date
		c.index[k.Category] = dates
	}
	c.entries[k] = tables
}

// Save stores tables under (date, cat) and seeds every following day of
// the same category that has no entry yet, stopping at the first day that
// does. The cache is then persisted in the background.
func (c *Cache) Save(tables []model.Table, date time.Time, cat model.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saveLocked(NewKey(date, cat), model.CloneTables(tables))
	c.persistLocked()
}

// Reset replaces (date, cat) with the base tables, propagating the same way
// Save does.
func (c *Cache) Reset(date time.Time, cat model.Category) []model.Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := NewKey(date, cat)
	c.saveLocked(k, c.venue.Tables())
	c.persistLocked()
	return model.CloneTables(c.entries[k])
}

func (c *Cache) saveLocked(k Key, tables []model.Table) {
	tables = c.deriveLocked(tables)
	c.setLocked(k, tables)
	// Reservation-based counters describe k's own bookings and are not
	// carried into other days.
	carried := model.CloneTables(tables)
	for i := range carried {
		carried[i].ActiveReservationAdjacentCount = 0
	}
	for i := 1; i <= c.venue.PropagationDays(); i++ {
		next := Key{Date: k.Date.AddDate(0, 0, i), Category: k.Category}
		if _, exists := c.entries[next]; exists {
			break
		}
		c.setLocked(next, model.CloneTables(carried))
	}
}

// persistLocked hands a snapshot to the persister. It runs under c.mu so
// snapshots reach the persister in save order.
func (c *Cache) persistLocked() {
	if c.persist == nil {
		return
	}
	out := make(map[string][]model.Table, len(c.entries))
	for k, tables := range c.entries {
		out[k.String()] = tables
	}
	blob, err := json.Marshal(out)
	if err != nil {
		log.Printf("layout-cache: snapshot failed: %v", err)
		return
	}
	c.persist.schedule(blob)
}

// Entry returns the stored layout for k without any fallback.
func (c *Cache) Entry(k Key) ([]model.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tables, ok := c.entries[k]
	return model.CloneTables(tables), ok
}

// Keys lists every stored key in chronological order.
func (c *Cache) Keys() []Key {
	c.mu.RLock()
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

// Restore replaces the cache content with the persisted blob. A missing
// blob leaves the cache empty.
func (c *Cache) Restore(ctx context.Context, store BlobStore) error {
	blob, ok, err := store.LoadBlob(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("load layouts: %w", err)
	}
	if !ok {
		return nil
	}
	var raw map[string][]model.Table
	if err := json.Unmarshal(blob, &raw); err != nil {
		return fmt.Errorf("decode layouts: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key][]model.Table, len(raw))
	c.index = make(map[model.Category][]time.Time)
	for s, tables := range raw {
		k, err := ParseKey(s)
		if err != nil {
			log.Printf("layout-cache: skipping persisted entry: %v", err)
			continue
		}
		c.setLocked(k, tables)
	}
	return nil
}

// Flush writes any pending snapshot synchronously.
func (c *Cache) Flush(ctx context.Context) error {
	if c.persist == nil {
		return nil
	}
	return c.persist.flush(ctx)
}

// Close stops the background persister after writing the last snapshot.
func (c *Cache) Close(ctx context.Context) error {
	if c.persist == nil {
		return nil
	}
	return c.persist.close(ctx)
}

// Move repositions one table of the (date, cat) layout after checking it
// stays on the grid and clear of every other visible table.
func (c *Cache) Move(date time.Time, cat model.Category, id, row, col int) ([]model.Table, error) {
	return c.update(date, cat, id, func(g *grid.Grid, visible []model.Table, t model.Table) (model.Table, error) {
		moved := t.Moved(row, col)
		if t.IsVisible {
			g.Clear(t)
			if !g.CanPlace(moved, 0, visible) {
				return t, fmt.Errorf("%w: table %d at (%d,%d)", ErrInvalidPlacement, id, row, col)
			}
			g.Mark(moved)
		} else if !g.InBounds(moved) {
			return t, fmt.Errorf("%w: table %d at (%d,%d)", ErrInvalidPlacement, id, row, col)
		}
		return moved, nil
	})
}

// SetVisibility shows or hides one table. Showing a table requires its
// footprint to be free.
func (c *Cache) SetVisibility(date time.Time, cat model.Category, id int, visible bool) ([]model.Table, error) {
	return c.update(date, cat, id, func(g *grid.Grid, others []model.Table, t model.Table) (model.Table, error) {
		if visible && !t.IsVisible && !g.CanPlace(t, 0, others) {
			return t, fmt.Errorf("%w: table %d overlaps another table", ErrInvalidPlacement, id)
		}
		t.IsVisible = visible
		return t, nil
	})
}

type placeFunc func(g *grid.Grid, visible []model.Table, t model.Table) (model.Table, error)

func (c *Cache) update(date time.Time, cat model.Category, id int, place placeFunc) ([]model.Table, error) {
	c.mu.Lock()
	k := NewKey(date, cat)
	tables := model.CloneTables(c.loadLocked(k))
	pos := -1
	for i, t := range tables {
		if t.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrTableNotFound, id)
	}
	visible := Visible(tables)
	g := grid.New(c.venue.GridSize())
	g.Initialize(visible)
	updated, err := place(g, visible, tables[pos])
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	tables[pos] = updated
	c.saveLocked(k, tables)
	c.persistLocked()
	c.mu.Unlock()
	return model.CloneTables(tables), nil
}

// TableAt returns the visible table covering (row, col) in the (date, cat)
// layout.
func (c *Cache) TableAt(date time.Time, cat model.Category, row, col int) (model.Table, bool) {
	return grid.FindTable(row, col, Visible(c.Load(date, cat)))
}

// Visible filters out hidden tables.
func Visible(tables []model.Table) []model.Table {
	out := make([]model.Table, 0, len(tables))
	for _, t := range tables {
		if t.IsVisible {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks that every visible table lies on a rows×cols grid and
// that no two visible tables overlap.
func Validate(tables []model.Table, rows, cols int) error {
	visible := Visible(tables)
	g := grid.New(rows, cols)
	seen := make(map[int]bool, len(tables))
	for _, t := range tables {
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate table %d", ErrInvalidPlacement, t.ID)
		}
		seen[t.ID] = true
		if t.IsVisible && !g.CanPlace(t, 0, visible) {
			return fmt.Errorf("%w: table %d", ErrInvalidPlacement, t.ID)
		}
	}
	return nil
}

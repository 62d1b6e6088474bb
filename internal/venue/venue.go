// Package venue holds the static base configuration of a restaurant floor:
// grid size, the base table set used to seed new layouts, and the
// canonical order in which tables are handed out.
package venue

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/table-allocation/internal/model"
)

// ErrInvalidConfig wraps every validation failure of a venue file.
var ErrInvalidConfig = errors.New("invalid venue config")

// Config mirrors the YAML venue file.
type Config struct {
	Name            string        `yaml:"name"`
	Grid            GridConfig    `yaml:"grid"`
	Tables          []TableConfig `yaml:"tables"`
	AssignmentOrder []int         `yaml:"assignment_order"`
	GracePeriod     time.Duration `yaml:"grace_period"`
	PropagationDays int           `yaml:"propagation_days"`
}

// GridConfig holds the floor dimensions in cells.
type GridConfig struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// TableConfig describes one base table. Visible defaults to true.
type TableConfig struct {
	ID          int    `yaml:"id"`
	Name        string `yaml:"name"`
	MaxCapacity int    `yaml:"max_capacity"`
	Row         int    `yaml:"row"`
	Column      int    `yaml:"column"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Visible     *bool  `yaml:"visible"`
}

func (tc TableConfig) table() model.Table {
	visible := true
	if tc.Visible != nil {
		visible = *tc.Visible
	}
	w, h := tc.Width, tc.Height
	if w == 0 {
		w = 3
	}
	if h == 0 {
		h = 3
	}
	return model.Table{
		ID:          tc.ID,
		Name:        tc.Name,
		MaxCapacity: tc.MaxCapacity,
		Row:         tc.Row,
		Column:      tc.Column,
		Width:       w,
		Height:      h,
		IsVisible:   visible,
	}
}

// Load reads and validates a venue file.
func Load(path string) (*Registry, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// ReadConfig decodes a venue file without validating it, so callers can
// apply overrides before calling New.
func ReadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read venue file: %w", err)
	}
	return decode(data)
}

// Parse decodes and validates a YAML venue document.
func Parse(data []byte) (*Registry, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

func decode(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse venue file: %w", err)
	}
	return cfg, nil
}

// Registry is the in-memory base table collection of one venue.
type Registry struct {
	name        string
	rows, cols  int
	tables      []model.Table // sorted by ID
	byID        map[int]int
	ordering    Ordering
	grace       time.Duration
	propagation int
}

// New validates cfg and builds a Registry.
func New(cfg Config) (*Registry, error) {
	if cfg.Grid.Rows <= 0 || cfg.Grid.Cols <= 0 {
		return nil, fmt.Errorf("%w: grid must be positive, got %dx%d", ErrInvalidConfig, cfg.Grid.Rows, cfg.Grid.Cols)
	}
	if len(cfg.Tables) == 0 {
		return nil, fmt.Errorf("%w: no tables", ErrInvalidConfig)
	}
	if cfg.GracePeriod < 0 {
		return nil, fmt.Errorf("%w: negative grace period", ErrInvalidConfig)
	}
	if cfg.PropagationDays <= 0 {
		cfg.PropagationDays = 60
	}
	r := &Registry{
		name:        cfg.Name,
		rows:        cfg.Grid.Rows,
		cols:        cfg.Grid.Cols,
		byID:        make(map[int]int, len(cfg.Tables)),
		grace:       cfg.GracePeriod,
		propagation: cfg.PropagationDays,
	}
	for _, tc := range cfg.Tables {
		t := tc.table()
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate table id %d", ErrInvalidConfig, t.ID)
		}
		if t.MaxCapacity <= 0 {
			return nil, fmt.Errorf("%w: table %d has no capacity", ErrInvalidConfig, t.ID)
		}
		if t.Row < 0 || t.Column < 0 || t.Row+t.Height > r.rows || t.Column+t.Width > r.cols {
			return nil, fmt.Errorf("%w: table %d lies outside the grid", ErrInvalidConfig, t.ID)
		}
		r.byID[t.ID] = 0
		r.tables = append(r.tables, t)
	}
	sort.Slice(r.tables, func(i, j int) bool { return r.tables[i].ID < r.tables[j].ID })
	for i, t := range r.tables {
		r.byID[t.ID] = i
	}
	for i := range r.tables {
		for j := i + 1; j < len(r.tables); j++ {
			a, b := r.tables[i], r.tables[j]
			if a.IsVisible && b.IsVisible && a.Intersects(b) {
				return nil, fmt.Errorf("%w: tables %d and %d overlap", ErrInvalidConfig, a.ID, b.ID)
			}
		}
	}
	listed := make(map[int]bool, len(cfg.AssignmentOrder))
	for _, id := range cfg.AssignmentOrder {
		if _, ok := r.byID[id]; !ok {
			return nil, fmt.Errorf("%w: assignment order references unknown table %d", ErrInvalidConfig, id)
		}
		if listed[id] {
			return nil, fmt.Errorf("%w: assignment order lists table %d twice", ErrInvalidConfig, id)
		}
		listed[id] = true
	}
	r.ordering = NewOrdering(cfg.AssignmentOrder)
	return r, nil
}

// Name of the venue.
func (r *Registry) Name() string { return r.name }

// GridSize returns the floor dimensions.
func (r *Registry) GridSize() (rows, cols int) { return r.rows, r.cols }

// Tables returns a copy of the base tables ordered by ID.
func (r *Registry) Tables() []model.Table { return model.CloneTables(r.tables) }

// Lookup returns the base table with the given ID.
func (r *Registry) Lookup(id int) (model.Table, bool) {
	i, ok := r.byID[id]
	if !ok {
		return model.Table{}, false
	}
	return r.tables[i], true
}

// Ordering returns the canonical assignment order.
func (r *Registry) Ordering() Ordering { return r.ordering }

// GracePeriod is appended to existing reservations' end times when
// checking occupancy.
func (r *Registry) GracePeriod() time.Duration { return r.grace }

// PropagationDays bounds how far forward a saved layout is seeded.
func (r *Registry) PropagationDays() int { return r.propagation }

package layout

import (
	"fmt"
	"time"

	"github.com/iliyamo/table-allocation/internal/model"
)

// Key identifies one layout: a calendar day and a service category.
type Key struct {
	Date     time.Time // midnight UTC of the civil day
	Category model.Category
}

// NewKey normalises date to its civil day.
func NewKey(date time.Time, cat model.Category) Key {
	return Key{Date: day(date), Category: cat}
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// String renders "<YYYY-MM-DD>-<category>". Within one category the
// lexicographic order of these strings is the chronological order.
func (k Key) String() string {
	return k.Date.Format(model.DateLayout) + "-" + string(k.Category)
}

// Before orders keys by date, then category.
func (k Key) Before(o Key) bool {
	if !k.Date.Equal(o.Date) {
		return k.Date.Before(o.Date)
	}
	return k.Category < o.Category
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	if len(s) < len(model.DateLayout)+2 || s[len(model.DateLayout)] != '-' {
		return Key{}, fmt.Errorf("malformed layout key %q", s)
	}
	d, err := time.Parse(model.DateLayout, s[:len(model.DateLayout)])
	if err != nil {
		return Key{}, fmt.Errorf("malformed layout key %q: %w", s, err)
	}
	cat, err := model.ParseCategory(s[len(model.DateLayout)+1:])
	if err != nil {
		return Key{}, fmt.Errorf("malformed layout key %q: %w", s, err)
	}
	return NewKey(d, cat), nil
}

package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Date and time-of-day layouts used by reservation records.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShowedUp  Status = "showedUp"
	StatusLate      Status = "late"
	StatusToHandle  Status = "toHandle"
	StatusCanceled  Status = "canceled"
	StatusNoShow    Status = "noShow"
	StatusDeleted   Status = "deleted"
)

// Kind distinguishes how a reservation entered the book.
type Kind string

const (
	KindInAdvance   Kind = "inAdvance"
	KindWaitingList Kind = "waitingList"
	KindNone        Kind = "none"
)

// ErrInvalidWindow is returned by Window when the date or times cannot be
// parsed or the end does not come after the start.
var ErrInvalidWindow = errors.New("invalid reservation window")

// Reservation is a time-bounded request for tables. Records are owned by
// the reservation source; this package only reads them.
//
// Fields:
//
//	ID              – reservation identity.
//	Name            – guest name, informational only.
//	NumberOfPersons – party size.
//	DateString      – calendar date (YYYY-MM-DD).
//	Category        – service period.
//	StartTime       – start time of day (HH:MM).
//	EndTime         – end time of day (HH:MM).
//	Status          – lifecycle state.
//	Kind            – in-advance, waiting-list or none.
//	Tables          – tables currently assigned.
type Reservation struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name,omitempty"`
	NumberOfPersons int       `json:"numberOfPersons"`
	DateString      string    `json:"dateString"`
	Category        Category  `json:"category"`
	StartTime       string    `json:"startTime"`
	EndTime         string    `json:"endTime"`
	Status          Status    `json:"status"`
	Kind            Kind      `json:"kind"`
	Tables          []Table   `json:"tables"`
}

// IsOccupying reports whether the reservation holds its tables. Canceled,
// no-show and deleted reservations and waiting-list entries never do, even
// when they still reference tables.
func (r Reservation) IsOccupying() bool {
	switch r.Status {
	case StatusCanceled, StatusNoShow, StatusDeleted:
		return false
	}
	return r.Kind != KindWaitingList
}

// HasTable reports whether the table with the given ID is assigned.
func (r Reservation) HasTable(id int) bool {
	for _, t := range r.Tables {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Date parses DateString as a civil date in loc.
func (r Reservation) Date(loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, r.DateString, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidWindow, r.DateString)
	}
	return d, nil
}

// Window returns the absolute [start, end) interval of the reservation.
func (r Reservation) Window(loc *time.Location) (time.Time, time.Time, error) {
	day, err := r.Date(loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, err := atTimeOfDay(day, r.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := atTimeOfDay(day, r.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %s not after start %s", ErrInvalidWindow, r.EndTime, r.StartTime)
	}
	return start, end, nil
}

func atTimeOfDay(day time.Time, hhmm string) (time.Time, error) {
	tod, err := time.Parse(TimeLayout, hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidWindow, hhmm)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, day.Location()), nil
}

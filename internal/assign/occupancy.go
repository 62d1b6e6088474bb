package assign

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/table-allocation/internal/model"
)

// IsOccupied reports whether some other active reservation on date holds
// table during [start, end). grace is appended to the other reservation's
// end to absorb slack between consecutive seatings. Reservations with
// malformed times are ignored.
func IsOccupied(table model.Table, reservations []model.Reservation, date string, start, end time.Time, excludingID uuid.UUID, grace time.Duration, loc *time.Location) bool {
	for _, r := range reservations {
		if r.ID == excludingID || !r.IsOccupying() {
			continue
		}
		if r.DateString != date || !r.HasTable(table.ID) {
			continue
		}
		rs, re, err := r.Window(loc)
		if err != nil {
			continue
		}
		if start.Before(re.Add(grace)) && rs.Before(end) {
			return true
		}
	}
	return false
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/table-allocation/internal/model"
)

// ReservationRepo reads reservations and their table links from the
// booking database. It never writes; the booking system owns these rows.
//
// Expected shape:
//
//	reservations(id CHAR(36), name, number_of_persons, reservation_date CHAR(10),
//	             category, start_time CHAR(5), end_time CHAR(5), status, kind)
//	reservation_tables(reservation_id CHAR(36), table_id INT)
type ReservationRepo struct {
	db     *sql.DB
	lookup func(id int) (model.Table, bool)
}

// NewReservationRepo returns a repo bound to db. lookup resolves table IDs
// to full tables; unknown IDs become bare tables carrying only the ID.
func NewReservationRepo(db *sql.DB, lookup func(id int) (model.Table, bool)) *ReservationRepo {
	return &ReservationRepo{db: db, lookup: lookup}
}

// ReservationsOn returns every reservation dated date (YYYY-MM-DD) with
// its tables, ordered by reservation ID.
func (r *ReservationRepo) ReservationsOn(ctx context.Context, date string) ([]model.Reservation, error) {
	const q = `
SELECT r.id, r.name, r.number_of_persons, r.reservation_date, r.category,
       r.start_time, r.end_time, r.status, r.kind, rt.table_id
FROM reservations r
LEFT JOIN reservation_tables rt ON rt.reservation_id = r.id
WHERE r.reservation_date = ?
ORDER BY r.id, rt.table_id`

	rows, err := r.db.QueryContext(ctx, q, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out   []model.Reservation
		index = map[uuid.UUID]int{}
	)
	for rows.Next() {
		var (
			rawID   string
			res     model.Reservation
			tableID sql.NullInt64
		)
		if err := rows.Scan(&rawID, &res.Name, &res.NumberOfPersons, &res.DateString, &res.Category,
			&res.StartTime, &res.EndTime, &res.Status, &res.Kind, &tableID); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("reservation id %q: %w", rawID, err)
		}
		res.ID = id

		pos, seen := index[id]
		if !seen {
			pos = len(out)
			index[id] = pos
			out = append(out, res)
		}
		if tableID.Valid {
			out[pos].Tables = append(out[pos].Tables, r.table(int(tableID.Int64)))
		}
	}
	return out, rows.Err()
}

func (r *ReservationRepo) table(id int) model.Table {
	if r.lookup != nil {
		if t, ok := r.lookup(id); ok {
			return t
		}
	}
	return model.Table{ID: id}
}

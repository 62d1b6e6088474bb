package assign

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/table-allocation/internal/model"
)

// ReservationSource lists every reservation of a calendar day
// (YYYY-MM-DD) with its assigned tables.
type ReservationSource interface {
	ReservationsOn(ctx context.Context, date string) ([]model.Reservation, error)
}

// MemorySource is an in-process ReservationSource.
type MemorySource struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.Reservation
}

// NewMemorySource returns a source holding the given reservations.
func NewMemorySource(reservations ...model.Reservation) *MemorySource {
	s := &MemorySource{items: make(map[uuid.UUID]model.Reservation, len(reservations))}
	for _, r := range reservations {
		s.items[r.ID] = r
	}
	return s
}

// ReservationsOn implements ReservationSource.
func (s *MemorySource) ReservationsOn(_ context.Context, date string) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Reservation
	for _, r := range s.items {
		if r.DateString == date {
			r.Tables = model.CloneTables(r.Tables)
			out = append(out, r)
		}
	}
	return out, nil
}

// Record stores or replaces a reservation.
func (s *MemorySource) Record(_ context.Context, r model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Tables = model.CloneTables(r.Tables)
	s.items[r.ID] = r
	return nil
}

// Get returns the stored reservation with the given ID.
func (s *MemorySource) Get(id uuid.UUID) (model.Reservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[id]
	return r, ok
}

// Find returns the reservation with the given ID. A nil ID never matches.
func Find(reservations []model.Reservation, id uuid.UUID) (model.Reservation, bool) {
	if id == uuid.Nil {
		return model.Reservation{}, false
	}
	for _, r := range reservations {
		if r.ID == id {
			return r, true
		}
	}
	return model.Reservation{}, false
}

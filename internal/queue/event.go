// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// TablesAssignedQueue is the durable queue assignment events are sent to.
const TablesAssignedQueue = "tables.assigned"

// TablesAssignedEvent is published after a reservation's tables have been
// chosen and its layout written back. It carries enough detail for
// downstream consumers to log or notify without querying the service.
type TablesAssignedEvent struct {
	ReservationID   string   `json:"reservation_id"`
	Name            string   `json:"name"`
	Date            string   `json:"date"`
	Category        string   `json:"category"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	NumberOfPersons int      `json:"number_of_persons"`
	TableIDs        []int    `json:"table_ids"`
	TableNames      []string `json:"tables"`
	ForcedTableID   *int     `json:"forced_table_id,omitempty"`
	AssignedAt      string   `json:"assigned_at"`
}

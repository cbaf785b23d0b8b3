// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// Event types carried in SeatingEvent.Type.
const (
	EventSeated        = "reservation.seated"
	EventFinished      = "reservation.finished"
	EventStatusChanged = "reservation.status_changed"
)

// DefaultSeatingQueue is the durable queue seating events are routed to.
const DefaultSeatingQueue = "restaurant.seating"

// SeatingEvent is published after a seating transaction commits. It carries
// enough for downstream consumers to log or notify without querying the
// primary database. TableID and TableName are zero when the change did not
// involve a table, such as cancelling a booked reservation.
type SeatingEvent struct {
	Type          string `json:"type"`
	ReservationID int64  `json:"reservation_id"`
	TableID       int64  `json:"table_id,omitempty"`
	TableName     string `json:"table_name,omitempty"`
	People        int    `json:"people"`
	Status        string `json:"status"`
	OccurredAt    string `json:"occurred_at"`
}

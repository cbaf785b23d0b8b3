package model

// Table describes a physical dining table. A table is occupied while
// ReservationID is set; the reference is a back-link to the seated
// reservation, not an ownership relation.
//
// Fields:
//
//	ID            – primary key identifier.
//	TableName     – display name, at least two characters.
//	Capacity      – largest party the table can seat.
//	ReservationID – seated reservation, nil when the table is free.
type Table struct {
	ID            int64  `json:"table_id"`       // restaurant_tables.table_id
	TableName     string `json:"table_name"`     // restaurant_tables.table_name
	Capacity      int    `json:"capacity"`       // restaurant_tables.capacity
	ReservationID *int64 `json:"reservation_id"` // restaurant_tables.reservation_id (nullable)
}

// Occupied reports whether a reservation is seated at the table.
func (t *Table) Occupied() bool { return t.ReservationID != nil }

// Fits reports whether a party of the given size fits at the table.
func (t *Table) Fits(people int) bool { return t.Capacity >= people }

// TableInput is the raw create payload. Capacity is untyped for the same
// reason as ReservationInput.People.
type TableInput struct {
	TableName string `json:"table_name"`
	Capacity  any    `json:"capacity"`
}

package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusBooked    ReservationStatus = "booked"
	StatusSeated    ReservationStatus = "seated"
	StatusFinished  ReservationStatus = "finished"
	StatusCancelled ReservationStatus = "cancelled"
)

// ParseStatus returns the status named by s and whether it is known.
func ParseStatus(s string) (ReservationStatus, bool) {
	switch st := ReservationStatus(s); st {
	case StatusBooked, StatusSeated, StatusFinished, StatusCancelled:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further transition is allowed out of s.
func (s ReservationStatus) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// CanTransitionTo reports whether next is a legal successor of s.
//
//	booked -> seated      (seat at a table)
//	seated -> finished    (table cleared)
//	seated -> booked      (administrative un-seat)
//	booked|seated -> cancelled
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	switch s {
	case StatusBooked:
		return next == StatusSeated || next == StatusCancelled
	case StatusSeated:
		return next == StatusFinished || next == StatusBooked || next == StatusCancelled
	}
	return false
}

// Reservation is a party's booking for a date and time.
//
// Fields:
//
//	ID              – primary key identifier.
//	FirstName       – guest first name.
//	LastName        – guest last name.
//	MobileNumber    – contact number, stored as entered.
//	ReservationDate – calendar date, YYYY-MM-DD.
//	ReservationTime – time of day, HH:MM.
//	People          – party size, at least 1.
//	Status          – lifecycle state, booked on creation.
//	CreatedAt       – creation timestamp.
//	UpdatedAt       – last update timestamp.
type Reservation struct {
	ID              int64             `json:"reservation_id"`   // reservations.reservation_id
	FirstName       string            `json:"first_name"`       // reservations.first_name
	LastName        string            `json:"last_name"`        // reservations.last_name
	MobileNumber    string            `json:"mobile_number"`    // reservations.mobile_number
	ReservationDate string            `json:"reservation_date"` // reservations.reservation_date
	ReservationTime string            `json:"reservation_time"` // reservations.reservation_time
	People          int               `json:"people"`           // reservations.people
	Status          ReservationStatus `json:"status"`           // reservations.status
	CreatedAt       time.Time         `json:"created_at"`       // reservations.created_at
	UpdatedAt       time.Time         `json:"updated_at"`       // reservations.updated_at
}

// ReservationInput is the raw create payload. People is left untyped so the
// validation layer can tell a missing value from a string or a fraction.
type ReservationInput struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	MobileNumber    string `json:"mobile_number"`
	ReservationDate string `json:"reservation_date"`
	ReservationTime string `json:"reservation_time"`
	People          any    `json:"people"`
}

// ReservationPatch is a partial update. Nil fields are left unchanged.
type ReservationPatch struct {
	FirstName       *string `json:"first_name,omitempty"`
	LastName        *string `json:"last_name,omitempty"`
	MobileNumber    *string `json:"mobile_number,omitempty"`
	ReservationDate *string `json:"reservation_date,omitempty"`
	ReservationTime *string `json:"reservation_time,omitempty"`
	People          *int    `json:"people,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ReservationPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.MobileNumber == nil &&
		p.ReservationDate == nil && p.ReservationTime == nil && p.People == nil
}

// Apply copies the set fields of p onto r.
func (p ReservationPatch) Apply(r *Reservation) {
	if p.FirstName != nil {
		r.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		r.LastName = *p.LastName
	}
	if p.MobileNumber != nil {
		r.MobileNumber = *p.MobileNumber
	}
	if p.ReservationDate != nil {
		r.ReservationDate = *p.ReservationDate
	}
	if p.ReservationTime != nil {
		r.ReservationTime = *p.ReservationTime
	}
	if p.People != nil {
		r.People = *p.People
	}
}

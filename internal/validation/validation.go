// Package validation holds the pure checks that gate every reservation and
// table mutation. Nothing here touches storage; each function either returns
// a typed value ready for the service layer or an apperr validation error.
package validation

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/apperr"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/model"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeFormat = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)
)

// Rules carries the restaurant's business hours. Opening and Closing are
// zero-padded HH:MM strings and compared lexicographically.
type Rules struct {
	Opening       string
	Closing       string
	ClosedWeekday time.Weekday
	Location      *time.Location
	// Now is the clock used for the future-date check. Nil means time.Now.
	Now func() time.Time
}

// DefaultRules returns the canonical rules: open 10:30 to 21:30, closed on
// Tuesdays, dates evaluated in UTC.
func DefaultRules() Rules {
	return Rules{
		Opening:       "10:30",
		Closing:       "21:30",
		ClosedWeekday: time.Tuesday,
		Location:      time.UTC,
	}
}

// Today returns the current calendar date in the rules' location.
func (r Rules) Today() string {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc).Format(DateLayout)
}

var requiredFields = []string{
	"first_name", "last_name", "mobile_number", "reservation_date", "reservation_time", "people",
}

// ValidateReservation checks a create payload and returns the reservation to
// persist, with status booked.
func (r Rules) ValidateReservation(in model.ReservationInput) (*model.Reservation, error) {
	values := map[string]bool{
		"first_name":       strings.TrimSpace(in.FirstName) != "",
		"last_name":        strings.TrimSpace(in.LastName) != "",
		"mobile_number":    strings.TrimSpace(in.MobileNumber) != "",
		"reservation_date": in.ReservationDate != "",
		"reservation_time": in.ReservationTime != "",
		"people":           present(in.People),
	}
	for _, f := range requiredFields {
		if !values[f] {
			return nil, apperr.Validation("Field '%s' is required.", f)
		}
	}

	people, err := PositiveInt(in.People, "people must be a number greater than 0")
	if err != nil {
		return nil, err
	}
	if err := r.checkDate(in.ReservationDate); err != nil {
		return nil, err
	}
	if err := r.checkTime(in.ReservationTime); err != nil {
		return nil, err
	}

	return &model.Reservation{
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		MobileNumber:    strings.TrimSpace(in.MobileNumber),
		ReservationDate: in.ReservationDate,
		ReservationTime: in.ReservationTime,
		People:          people,
		Status:          model.StatusBooked,
	}, nil
}

// ValidatePatch checks every field the client provided in a partial update.
// raw is the decoded payload; a "status" key is rejected since status only
// changes through the status endpoint or seating.
func (r Rules) ValidatePatch(raw map[string]any) (model.ReservationPatch, error) {
	var p model.ReservationPatch
	if _, ok := raw["status"]; ok {
		return p, apperr.Validation("status cannot be changed with this request; use the status endpoint.")
	}

	str := func(field string) (*string, error) {
		v, ok := raw[field]
		if !ok {
			return nil, nil
		}
		s, isStr := v.(string)
		if !isStr || strings.TrimSpace(s) == "" {
			return nil, apperr.Validation("Field '%s' is required.", field)
		}
		s = strings.TrimSpace(s)
		return &s, nil
	}

	var err error
	if p.FirstName, err = str("first_name"); err != nil {
		return p, err
	}
	if p.LastName, err = str("last_name"); err != nil {
		return p, err
	}
	if p.MobileNumber, err = str("mobile_number"); err != nil {
		return p, err
	}
	if p.ReservationDate, err = str("reservation_date"); err != nil {
		return p, err
	}
	if p.ReservationTime, err = str("reservation_time"); err != nil {
		return p, err
	}
	if v, ok := raw["people"]; ok {
		n, err := PositiveInt(v, "people must be a number greater than 0")
		if err != nil {
			return p, err
		}
		p.People = &n
	}

	if p.ReservationDate != nil {
		if err := r.checkDate(*p.ReservationDate); err != nil {
			return p, err
		}
	}
	if p.ReservationTime != nil {
		if err := r.checkTime(*p.ReservationTime); err != nil {
			return p, err
		}
	}
	if p.Empty() {
		return p, apperr.Validation("At least one field must be provided.")
	}
	return p, nil
}

// ValidateTable checks a table create payload.
func ValidateTable(in model.TableInput) (*model.Table, error) {
	name := strings.TrimSpace(in.TableName)
	if len([]rune(name)) < 2 {
		return nil, apperr.Validation("'table_name' must be at least 2 characters long.")
	}
	capacity, err := PositiveInt(in.Capacity, "'capacity' must be a number greater than 0.")
	if err != nil {
		return nil, err
	}
	return &model.Table{TableName: name, Capacity: capacity}, nil
}

// ValidateSeatRequest returns the reservation id from a seat payload.
func ValidateSeatRequest(reservationID any) (int64, error) {
	n, err := PositiveInt(reservationID, "A reservation_id is required in the request body.")
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// ValidateStatus parses the requested status.
func ValidateStatus(raw any) (model.ReservationStatus, error) {
	s, _ := raw.(string)
	if s == "" {
		return "", apperr.Validation("Field 'status' is required.")
	}
	st, ok := model.ParseStatus(s)
	if !ok {
		return "", apperr.Validation("status '%s' is unknown.", s)
	}
	return st, nil
}

// ValidateListDate checks the date used to filter the reservation list. Only
// the format is enforced; past dates are valid for listing.
func ValidateListDate(date string) error {
	if date == "" {
		return apperr.Validation("date query parameter is required")
	}
	if !dateFormat.MatchString(date) {
		return apperr.Validation("date must be a valid date in YYYY-MM-DD format")
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return apperr.Validation("date must be a valid date")
	}
	return nil
}

// PositiveInt accepts a decoded JSON number holding a whole value >= 1.
// Strings and fractions are rejected with msg.
func PositiveInt(v any, msg string) (int, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, apperr.Validation("%s", msg)
	}
	if f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, apperr.Validation("%s", msg)
	}
	return int(f), nil
}

func (r Rules) checkDate(date string) error {
	if !dateFormat.MatchString(date) {
		return apperr.Validation("reservation_date must be a valid date in YYYY-MM-DD format")
	}
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return apperr.Validation("reservation_date must be a valid date")
	}
	// both sides are YYYY-MM-DD so string order is date order
	if date < r.Today() {
		return apperr.Validation("Reservation must be for a future date.")
	}
	if d.Weekday() == r.ClosedWeekday {
		return apperr.Validation("Restaurant is closed on %ss.", r.ClosedWeekday)
	}
	return nil
}

func (r Rules) checkTime(t string) error {
	if !timeFormat.MatchString(t) {
		return apperr.Validation("reservation_time must be a valid time in HH:MM format")
	}
	if t < r.Opening || t > r.Closing {
		return apperr.Validation("Reservation time must be between %s and %s.", r.Opening, r.Closing)
	}
	return nil
}

// present mirrors the truthiness test of the public API: zero and empty
// values count as missing.
func present(v any) bool {
	switch n := v.(type) {
	case nil:
		return false
	case string:
		return n != ""
	case float64:
		return n != 0
	case int:
		return n != 0
	case bool:
		return n
	}
	return true
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/model"
)

// ReservationRepo provides persistence for reservations. reservation_date is
// a DATE column and reservation_time a TIME column; the repository converts
// them to the YYYY-MM-DD and HH:MM strings used everywhere else. All
// timestamps are stored in UTC.
type ReservationRepo struct {
	q sqlx.ExtContext
}

// reservationRecord mirrors the reservations table. Business logic uses
// model.Reservation instead.
type reservationRecord struct {
	ID              int64     `db:"reservation_id"`
	FirstName       string    `db:"first_name"`
	LastName        string    `db:"last_name"`
	MobileNumber    string    `db:"mobile_number"`
	ReservationDate time.Time `db:"reservation_date"`
	ReservationTime string    `db:"reservation_time"`
	People          int       `db:"people"`
	Status          string    `db:"status"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (rec reservationRecord) toModel() model.Reservation {
	t := rec.ReservationTime
	if len(t) > 5 {
		t = t[:5] // TIME comes back as HH:MM:SS
	}
	return model.Reservation{
		ID:              rec.ID,
		FirstName:       rec.FirstName,
		LastName:        rec.LastName,
		MobileNumber:    rec.MobileNumber,
		ReservationDate: rec.ReservationDate.Format("2006-01-02"),
		ReservationTime: t,
		People:          rec.People,
		Status:          model.ReservationStatus(rec.Status),
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

const reservationColumns = `reservation_id, first_name, last_name, mobile_number,
	reservation_date, reservation_time, people, status, created_at, updated_at`

// ListByDate returns the reservations for date ordered by time.
func (r *ReservationRepo) ListByDate(ctx context.Context, date string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE reservation_date = ? ORDER BY reservation_time, reservation_id`
	var recs []reservationRecord
	if err := sqlx.SelectContext(ctx, r.q, &recs, q, date); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	out := make([]model.Reservation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

// Create inserts res and fills in the generated id, status and timestamps.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	if res.Status == "" {
		res.Status = model.StatusBooked
	}
	const q = `INSERT INTO reservations
		(first_name, last_name, mobile_number, reservation_date, reservation_time, people, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.q.ExecContext(ctx, q, res.FirstName, res.LastName, res.MobileNumber,
		res.ReservationDate, res.ReservationTime, res.People, string(res.Status))
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	// Query back the full row to populate timestamps and defaults
	created, err := r.get(ctx, id, false)
	if err != nil {
		return err
	}
	*res = *created
	return nil
}

// GetByID returns the reservation or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id int64) (*model.Reservation, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate is GetByID with a row lock held until the transaction ends.
func (r *ReservationRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Reservation, error) {
	return r.get(ctx, id, true)
}

func (r *ReservationRepo) get(ctx context.Context, id int64, lock bool) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE reservation_id = ?`
	if lock {
		q += ` FOR UPDATE`
	}
	var rec reservationRecord
	if err := sqlx.GetContext(ctx, r.q, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation %d: %w", id, err)
	}
	m := rec.toModel()
	return &m, nil
}

// Update writes the editable fields of res. Status is left alone.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	const q = `UPDATE reservations SET first_name = ?, last_name = ?, mobile_number = ?,
		reservation_date = ?, reservation_time = ?, people = ?, updated_at = CURRENT_TIMESTAMP
		WHERE reservation_id = ?`
	result, err := r.q.ExecContext(ctx, q, res.FirstName, res.LastName, res.MobileNumber,
		res.ReservationDate, res.ReservationTime, res.People, res.ID)
	if err != nil {
		return fmt.Errorf("update reservation %d: %w", res.ID, err)
	}
	if err := expectRow(result); err != nil {
		return err
	}
	updated, err := r.get(ctx, res.ID, false)
	if err != nil {
		return err
	}
	*res = *updated
	return nil
}

// UpdateStatus sets the status column only.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id int64, status model.ReservationStatus) error {
	const q = `UPDATE reservations SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE reservation_id = ?`
	result, err := r.q.ExecContext(ctx, q, string(status), id)
	if err != nil {
		return fmt.Errorf("update reservation %d status: %w", id, err)
	}
	return expectRow(result)
}

// expectRow maps zero matched rows to ErrNotFound. The DSN sets
// clientFoundRows so MySQL reports matched rather than changed rows.
func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/model"
)

// TableRepo provides persistence for restaurant tables. The physical table is
// restaurant_tables since TABLES is reserved in MySQL. reservation_id carries
// a UNIQUE constraint, so at most one table can reference a reservation.
type TableRepo struct {
	q sqlx.ExtContext
}

type tableRecord struct {
	ID            int64         `db:"table_id"`
	TableName     string        `db:"table_name"`
	Capacity      int           `db:"capacity"`
	ReservationID sql.NullInt64 `db:"reservation_id"`
}

func (rec tableRecord) toModel() model.Table {
	t := model.Table{ID: rec.ID, TableName: rec.TableName, Capacity: rec.Capacity}
	if rec.ReservationID.Valid {
		id := rec.ReservationID.Int64
		t.ReservationID = &id
	}
	return t
}

const tableColumns = `table_id, table_name, capacity, reservation_id`

// List returns all tables ordered by name.
func (r *TableRepo) List(ctx context.Context) ([]model.Table, error) {
	const q = `SELECT ` + tableColumns + ` FROM restaurant_tables ORDER BY table_name, table_id`
	var recs []tableRecord
	if err := sqlx.SelectContext(ctx, r.q, &recs, q); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	out := make([]model.Table, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

// Create inserts a free table and sets its generated id.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
	const q = `INSERT INTO restaurant_tables (table_name, capacity) VALUES (?, ?)`
	result, err := r.q.ExecContext(ctx, q, t.TableName, t.Capacity)
	if err != nil {
		return fmt.Errorf("insert table: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert table: %w", err)
	}
	t.ID = id
	t.ReservationID = nil
	return nil
}

func (r *TableRepo) GetByID(ctx context.Context, id int64) (*model.Table, error) {
	return r.getBy(ctx, "table_id", id, false)
}

func (r *TableRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Table, error) {
	return r.getBy(ctx, "table_id", id, true)
}

// GetByReservationIDForUpdate locks the table currently linked to the
// reservation, or returns ErrNotFound when none is.
func (r *TableRepo) GetByReservationIDForUpdate(ctx context.Context, reservationID int64) (*model.Table, error) {
	return r.getBy(ctx, "reservation_id", reservationID, true)
}

func (r *TableRepo) getBy(ctx context.Context, column string, id int64, lock bool) (*model.Table, error) {
	q := `SELECT ` + tableColumns + ` FROM restaurant_tables WHERE ` + column + ` = ?`
	if lock {
		q += ` FOR UPDATE`
	}
	var rec tableRecord
	if err := sqlx.GetContext(ctx, r.q, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get table by %s %d: %w", column, id, err)
	}
	t := rec.toModel()
	return &t, nil
}

// Assign is a compare-and-swap on reservation_id: the update only matches a
// free row. When nothing matched it tells a missing table from an occupied one.
func (r *TableRepo) Assign(ctx context.Context, tableID, reservationID int64) error {
	const q = `UPDATE restaurant_tables SET reservation_id = ? WHERE table_id = ? AND reservation_id IS NULL`
	result, err := r.q.ExecContext(ctx, q, reservationID, tableID)
	if err != nil {
		if isDuplicate(err) {
			return ErrAlreadyLinked
		}
		return fmt.Errorf("assign table %d: %w", tableID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign table %d: %w", tableID, err)
	}
	if n == 1 {
		return nil
	}
	if _, err := r.getBy(ctx, "table_id", tableID, false); err != nil {
		return err
	}
	return ErrTableOccupied
}

// Clear frees the table.
func (r *TableRepo) Clear(ctx context.Context, tableID int64) error {
	const q = `UPDATE restaurant_tables SET reservation_id = NULL WHERE table_id = ?`
	result, err := r.q.ExecContext(ctx, q, tableID)
	if err != nil {
		return fmt.Errorf("clear table %d: %w", tableID, err)
	}
	return expectRow(result)
}

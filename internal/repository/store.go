package repository

import (
	"context"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/model"
)

// ReservationRepository persists reservations. The ForUpdate variants take a
// row lock and are only meaningful inside WithinTx.
type ReservationRepository interface {
	ListByDate(ctx context.Context, date string) ([]model.Reservation, error)
	Create(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id int64) (*model.Reservation, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Reservation, error)
	Update(ctx context.Context, r *model.Reservation) error
	UpdateStatus(ctx context.Context, id int64, status model.ReservationStatus) error
}

// TableRepository persists tables and their occupancy link.
type TableRepository interface {
	List(ctx context.Context) ([]model.Table, error)
	Create(ctx context.Context, t *model.Table) error
	GetByID(ctx context.Context, id int64) (*model.Table, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Table, error)
	GetByReservationIDForUpdate(ctx context.Context, reservationID int64) (*model.Table, error)
	// Assign links reservationID to the table only if the table is free.
	// It returns ErrTableOccupied when the table already has a reservation.
	Assign(ctx context.Context, tableID, reservationID int64) error
	Clear(ctx context.Context, tableID int64) error
}

// Store groups the repositories behind one transactional boundary.
//
// WithinTx runs fn against a Store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise, including
// on panic. Nested calls on the Store passed to fn reuse the same transaction.
type Store interface {
	Reservations() ReservationRepository
	Tables() TableRepository
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
	Close() error
}

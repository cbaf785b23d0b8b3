package service

import (
	"context"
	"errors"
	"time"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/apperr"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/logger"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/metrics"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/model"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/queue"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/repository"
)

// publishTimeout bounds the hand-off of an event to the publisher.
const publishTimeout = 3 * time.Second

// SeatingService keeps table occupancy and reservation status consistent.
//
// Every operation runs in one transaction that locks the table row before the
// reservation row. The table link is written with a compare-and-swap, so two
// requests racing for the same table cannot both win even if they pass the
// precondition checks at the same time.
type SeatingService struct {
	store repository.Store
	opts  Options
}

// SeatResult is the state of both sides after a seating change.
type SeatResult struct {
	Table       *model.Table       `json:"table"`
	Reservation *model.Reservation `json:"reservation"`
}

// Seat links reservationID to tableID and marks the reservation seated.
func (s *SeatingService) Seat(ctx context.Context, tableID, reservationID int64) (*SeatResult, error) {
	ctx, cancel := mutationContext(ctx, s.opts.MutationTimeout)
	defer cancel()

	var out SeatResult
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		table, err := tx.Tables().GetByIDForUpdate(ctx, tableID)
		if err != nil {
			return notFound(err, "Table %d does not exist.", tableID)
		}
		res, err := tx.Reservations().GetByIDForUpdate(ctx, reservationID)
		if err != nil {
			return notFound(err, "Reservation %d does not exist.", reservationID)
		}
		switch {
		case res.Status == model.StatusSeated:
			return apperr.Conflict("Reservation %d is already seated.", reservationID)
		case res.Status.Terminal():
			return apperr.Conflict("Reservation %d is %s and cannot be seated.", reservationID, res.Status)
		}
		if table.Occupied() {
			return apperr.Conflict("Table %d is already occupied.", tableID)
		}
		if !table.Fits(res.People) {
			return apperr.Conflict("Table capacity of %d cannot seat %d people (insufficient capacity).",
				table.Capacity, res.People)
		}
		if s.opts.RequireSameDay && res.ReservationDate != s.opts.Rules.Today() {
			return apperr.Conflict("Cannot seat a reservation for a different date than today.")
		}

		if err := tx.Tables().Assign(ctx, tableID, reservationID); err != nil {
			switch {
			case errors.Is(err, repository.ErrTableOccupied):
				return apperr.Conflict("Table %d is already occupied.", tableID)
			case errors.Is(err, repository.ErrAlreadyLinked):
				return apperr.Conflict("Reservation %d is already seated.", reservationID)
			}
			return err
		}
		if err := tx.Reservations().UpdateStatus(ctx, reservationID, model.StatusSeated); err != nil {
			return err
		}
		return s.reload(ctx, tx, tableID, reservationID, &out)
	})
	if err != nil {
		s.observe("seat", err)
		return nil, storageError(err, "failed to seat reservation")
	}
	s.observe("seat", nil)
	logger.FromContext(ctx).Info("reservation seated", "table_id", tableID, "reservation_id", reservationID)
	s.publish(ctx, queue.EventSeated, out.Reservation, out.Table)
	return &out, nil
}

// Finish clears an occupied table and marks its reservation finished.
func (s *SeatingService) Finish(ctx context.Context, tableID int64) (*SeatResult, error) {
	ctx, cancel := mutationContext(ctx, s.opts.MutationTimeout)
	defer cancel()

	var out SeatResult
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		table, err := tx.Tables().GetByIDForUpdate(ctx, tableID)
		if err != nil {
			return notFound(err, "Table %d does not exist.", tableID)
		}
		if !table.Occupied() {
			return apperr.Conflict("Table %d is not occupied.", tableID)
		}
		reservationID := *table.ReservationID
		if _, err := tx.Reservations().GetByIDForUpdate(ctx, reservationID); err != nil {
			return notFound(err, "Reservation %d does not exist.", reservationID)
		}
		if err := s.release(ctx, tx, tableID, reservationID, model.StatusFinished); err != nil {
			return err
		}
		return s.reload(ctx, tx, tableID, reservationID, &out)
	})
	if err != nil {
		s.observe("finish", err)
		return nil, storageError(err, "failed to finish table")
	}
	s.observe("finish", nil)
	logger.FromContext(ctx).Info("table finished", "table_id", tableID, "reservation_id", out.Reservation.ID)
	s.publish(ctx, queue.EventFinished, out.Reservation, out.Table)
	return &out, nil
}

// ChangeStatus moves a reservation to status. Leaving seated frees the linked
// table in the same transaction; seating itself needs a table and goes
// through Seat.
func (s *SeatingService) ChangeStatus(ctx context.Context, reservationID int64, status model.ReservationStatus) (*model.Reservation, error) {
	if _, ok := model.ParseStatus(string(status)); !ok {
		return nil, apperr.Validation("status '%s' is unknown.", status)
	}
	ctx, cancel := mutationContext(ctx, s.opts.MutationTimeout)
	defer cancel()

	var (
		out     SeatResult
		changed bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		table, err := tx.Tables().GetByReservationIDForUpdate(ctx, reservationID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		res, err := tx.Reservations().GetByIDForUpdate(ctx, reservationID)
		if err != nil {
			return notFound(err, "Reservation %d does not exist.", reservationID)
		}

		switch {
		case res.Status.Terminal():
			return apperr.Conflict("Reservation %d is %s and cannot be changed.", reservationID, res.Status)
		case status == model.StatusSeated:
			return apperr.Conflict("A reservation can only be seated at a table.")
		case res.Status == status:
			out.Reservation = res
			return nil
		case status == model.StatusFinished && res.Status == model.StatusBooked:
			return apperr.Conflict("Reservation %d must be seated before it can be finished.", reservationID)
		case !res.Status.CanTransitionTo(status):
			return apperr.Conflict("Reservation %d cannot change from %s to %s.", reservationID, res.Status, status)
		}

		if res.Status == model.StatusSeated {
			if table == nil {
				return apperr.Conflict("Reservation %d is being seated; retry the request.", reservationID)
			}
			if err := s.release(ctx, tx, table.ID, reservationID, status); err != nil {
				return err
			}
			changed = true
			return s.reload(ctx, tx, table.ID, reservationID, &out)
		}

		if err := tx.Reservations().UpdateStatus(ctx, reservationID, status); err != nil {
			return err
		}
		changed = true
		res, err = tx.Reservations().GetByID(ctx, reservationID)
		out.Reservation = res
		return err
	})
	if err != nil {
		s.observe("status", err)
		return nil, storageError(err, "failed to change reservation status")
	}
	s.observe("status", nil)
	if changed {
		logger.FromContext(ctx).Info("reservation status changed", "reservation_id", reservationID, "status", status)
		evType := queue.EventStatusChanged
		if status == model.StatusFinished {
			evType = queue.EventFinished
		}
		s.publish(ctx, evType, out.Reservation, out.Table)
	}
	return out.Reservation, nil
}

// release clears the table and sets the reservation's new status.
func (s *SeatingService) release(ctx context.Context, tx repository.Store, tableID, reservationID int64, status model.ReservationStatus) error {
	if err := tx.Tables().Clear(ctx, tableID); err != nil {
		return err
	}
	return tx.Reservations().UpdateStatus(ctx, reservationID, status)
}

func (s *SeatingService) reload(ctx context.Context, tx repository.Store, tableID, reservationID int64, out *SeatResult) error {
	table, err := tx.Tables().GetByID(ctx, tableID)
	if err != nil {
		return err
	}
	res, err := tx.Reservations().GetByID(ctx, reservationID)
	if err != nil {
		return err
	}
	out.Table, out.Reservation = table, res
	return nil
}

func (s *SeatingService) observe(op string, err error) {
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
		if k := apperr.KindOf(err); k != apperr.KindStorage {
			outcome = metrics.OutcomeRejected
		}
	}
	s.opts.Metrics.ObserveSeating(op, outcome)
}

// publish sends the event best-effort. The transaction has already
// committed, so a failure is only logged.
func (s *SeatingService) publish(ctx context.Context, evType string, res *model.Reservation, table *model.Table) {
	if res == nil {
		return
	}
	ev := queue.SeatingEvent{
		Type:          evType,
		ReservationID: res.ID,
		People:        res.People,
		Status:        string(res.Status),
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if table != nil {
		ev.TableID, ev.TableName = table.ID, table.TableName
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.opts.Publisher.Publish(pctx, ev); err != nil {
		logger.FromContext(ctx).Warn("failed to publish seating event", "type", evType, "reservation_id", res.ID, "error", err)
	}
}

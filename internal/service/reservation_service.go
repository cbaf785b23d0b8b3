package service

import (
	"context"
	"errors"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/apperr"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/logger"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/model"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/repository"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/validation"
)

// ReservationService handles listing, creating, reading and editing
// reservations. Status changes go through SeatingService.
type ReservationService struct {
	store repository.Store
	opts  Options
}

// List returns the reservations for date ordered by time.
func (s *ReservationService) List(ctx context.Context, date string) ([]model.Reservation, error) {
	if err := validation.ValidateListDate(date); err != nil {
		return nil, err
	}
	out, err := s.store.Reservations().ListByDate(ctx, date)
	if err != nil {
		return nil, storageError(err, "failed to list reservations")
	}
	return out, nil
}

// Create validates in and stores it as a booked reservation.
func (s *ReservationService) Create(ctx context.Context, in model.ReservationInput) (*model.Reservation, error) {
	res, err := s.opts.Rules.ValidateReservation(in)
	if err != nil {
		return nil, err
	}
	ctx, cancel := mutationContext(ctx, s.opts.MutationTimeout)
	defer cancel()

	if err := s.store.Reservations().Create(ctx, res); err != nil {
		return nil, storageError(err, "failed to create reservation")
	}
	logger.FromContext(ctx).Info("reservation created",
		"reservation_id", res.ID, "date", res.ReservationDate, "time", res.ReservationTime, "people", res.People)
	return res, nil
}

// Get returns one reservation.
func (s *ReservationService) Get(ctx context.Context, id int64) (*model.Reservation, error) {
	res, err := s.store.Reservations().GetByID(ctx, id)
	if err != nil {
		return nil, storageError(notFound(err, "Reservation %d does not exist.", id), "failed to load reservation")
	}
	return res, nil
}

// Update applies a partial edit. Finished and cancelled reservations are
// frozen, and a seated party cannot grow past its table's capacity.
func (s *ReservationService) Update(ctx context.Context, id int64, raw map[string]any) (*model.Reservation, error) {
	patch, err := s.opts.Rules.ValidatePatch(raw)
	if err != nil {
		return nil, err
	}
	ctx, cancel := mutationContext(ctx, s.opts.MutationTimeout)
	defer cancel()

	var updated *model.Reservation
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		// table before reservation, same order as seating
		table, err := tx.Tables().GetByReservationIDForUpdate(ctx, id)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		res, err := tx.Reservations().GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "Reservation %d does not exist.", id)
		}
		if res.Status.Terminal() {
			return apperr.Conflict("Reservation %d is %s and cannot be edited.", id, res.Status)
		}
		if res.Status == model.StatusSeated && patch.People != nil {
			if table == nil {
				return apperr.Conflict("Reservation %d is being seated; retry the request.", id)
			}
			if !table.Fits(*patch.People) {
				return apperr.Conflict("Table capacity of %d cannot seat %d people (insufficient capacity).",
					table.Capacity, *patch.People)
			}
		}
		patch.Apply(res)
		if err := tx.Reservations().Update(ctx, res); err != nil {
			return notFound(err, "Reservation %d does not exist.", id)
		}
		updated = res
		return nil
	})
	if err != nil {
		return nil, storageError(err, "failed to update reservation")
	}
	logger.FromContext(ctx).Info("reservation updated", "reservation_id", id)
	return updated, nil
}

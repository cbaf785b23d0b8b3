// Package service implements the reservation, table and seating operations on
// top of a repository.Store. Every error leaving this package is an
// *apperr.Error so handlers can render it without inspecting storage details.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/apperr"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/metrics"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/repository"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/validation"
)

// DefaultMutationTimeout bounds a write when Options leaves it unset.
const DefaultMutationTimeout = 10 * time.Second

// Options carries the settings shared by the services.
type Options struct {
	Rules validation.Rules
	// RequireSameDay rejects seating a reservation dated other than today.
	RequireSameDay bool
	// MutationTimeout bounds each write. Writes ignore request cancellation
	// so a client disconnect cannot abandon a half-finished seating.
	MutationTimeout time.Duration
	Publisher       Publisher
	Metrics         *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.Rules.Opening == "" {
		o.Rules = validation.DefaultRules()
	}
	if o.MutationTimeout <= 0 {
		o.MutationTimeout = DefaultMutationTimeout
	}
	if o.Publisher == nil {
		o.Publisher = NopPublisher{}
	}
	return o
}

// Services bundles the three services built over one store.
type Services struct {
	Reservations *ReservationService
	Tables       *TableService
	Seating      *SeatingService
}

// New wires all services to store.
func New(store repository.Store, opts Options) *Services {
	opts = opts.withDefaults()
	return &Services{
		Reservations: &ReservationService{store: store, opts: opts},
		Tables:       &TableService{store: store, opts: opts},
		Seating:      &SeatingService{store: store, opts: opts},
	}
}

// mutationContext detaches ctx from cancellation and bounds it by timeout.
// Request-scoped values such as the request id survive.
func mutationContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// storageError passes *apperr.Error through and wraps anything else.
func storageError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Storage(err, msg)
}

func notFound(err error, format string, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(format, id)
	}
	return err
}

package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/logger"
)

// SQLStore is the MySQL-backed Store. The same value type serves both the
// pooled handle and a transaction-bound view; q points at whichever one is in
// use, so repository methods never need Tx variants.
type SQLStore struct {
	db *sqlx.DB
	q  sqlx.ExtContext
	tx *sqlx.Tx
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, q: db}
}

// DB exposes the pooled handle for health checks.
func (s *SQLStore) DB() *sqlx.DB { return s.db }

func (s *SQLStore) Reservations() ReservationRepository { return &ReservationRepo{q: s.q} }

func (s *SQLStore) Tables() TableRepository { return &TableRepo{q: s.q} }

// maxTxAttempts bounds how often a deadlock victim is rerun.
const maxTxAttempts = 3

// WithinTx begins a transaction, runs fn and commits. Any error from fn, a
// failed commit or a panic leaves the transaction rolled back. When InnoDB
// picks the transaction as a deadlock victim it has already been rolled
// back, so fn is rerun from the start; fn must not act outside tx.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !isDeadlock(err) || ctx.Err() != nil {
			return err
		}
		logger.FromContext(ctx).Warn("transaction deadlocked", "attempt", attempt, "error", err)
	}
	return err
}

func (s *SQLStore) runTx(ctx context.Context, fn func(tx Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&SQLStore{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close releases the pool. It is a no-op on a transaction-bound view.
func (s *SQLStore) Close() error {
	if s.tx != nil {
		return nil
	}
	return s.db.Close()
}

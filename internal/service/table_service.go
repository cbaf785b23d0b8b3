package service

import (
	"context"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/logger"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/model"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/repository"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/validation"
)

// TableService manages the restaurant's tables. Occupancy changes belong to
// SeatingService.
type TableService struct {
	store repository.Store
	opts  Options
}

func (s *TableService) List(ctx context.Context) ([]model.Table, error) {
	out, err := s.store.Tables().List(ctx)
	if err != nil {
		return nil, storageError(err, "failed to list tables")
	}
	return out, nil
}

// Create validates in and stores a free table.
func (s *TableService) Create(ctx context.Context, in model.TableInput) (*model.Table, error) {
	t, err := validation.ValidateTable(in)
	if err != nil {
		return nil, err
	}
	ctx, cancel := mutationContext(ctx, s.opts.MutationTimeout)
	defer cancel()

	if err := s.store.Tables().Create(ctx, t); err != nil {
		return nil, storageError(err, "failed to create table")
	}
	logger.FromContext(ctx).Info("table created", "table_id", t.ID, "capacity", t.Capacity)
	return t, nil
}

func (s *TableService) Get(ctx context.Context, id int64) (*model.Table, error) {
	t, err := s.store.Tables().GetByID(ctx, id)
	if err != nil {
		return nil, storageError(notFound(err, "Table %d does not exist.", id), "failed to load table")
	}
	return t, nil
}

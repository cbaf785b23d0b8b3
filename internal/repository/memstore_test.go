package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/model"
)

func seedMemory(t *testing.T) (*MemoryStore, *model.Reservation, *model.Table) {
	t.Helper()
	ctx := context.Background()
	s := NewMemoryStore()
	res := &model.Reservation{FirstName: "Ann", LastName: "Lee", MobileNumber: "555-0100",
		ReservationDate: "2030-01-03", ReservationTime: "18:30", People: 2}
	require.NoError(t, s.Reservations().Create(ctx, res))
	tbl := &model.Table{TableName: "#1", Capacity: 4}
	require.NoError(t, s.Tables().Create(ctx, tbl))
	return s, res, tbl
}

func TestMemoryStoreListByDateOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, tm := range []string{"20:00", "11:00", "11:00"} {
		require.NoError(t, s.Reservations().Create(ctx, &model.Reservation{
			FirstName: "x", LastName: "y", MobileNumber: "1", ReservationDate: "2030-01-03",
			ReservationTime: tm, People: 1,
		}))
	}
	require.NoError(t, s.Reservations().Create(ctx, &model.Reservation{ReservationDate: "2030-01-04", ReservationTime: "09:00"}))

	got, err := s.Reservations().ListByDate(ctx, "2030-01-03")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{2, 3, 1}, []int64{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, model.StatusBooked, got[0].Status)
}

func TestMemoryStoreAssign(t *testing.T) {
	ctx := context.Background()
	s, res, tbl := seedMemory(t)

	require.NoError(t, s.Tables().Assign(ctx, tbl.ID, res.ID))
	assert.ErrorIs(t, s.Tables().Assign(ctx, tbl.ID, res.ID+1), ErrTableOccupied)
	assert.ErrorIs(t, s.Tables().Assign(ctx, 404, res.ID), ErrNotFound)

	other := &model.Table{TableName: "#2", Capacity: 4}
	require.NoError(t, s.Tables().Create(ctx, other))
	assert.ErrorIs(t, s.Tables().Assign(ctx, other.ID, res.ID), ErrAlreadyLinked)

	linked, err := s.Tables().GetByReservationIDForUpdate(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, tbl.ID, linked.ID)

	require.NoError(t, s.Tables().Clear(ctx, tbl.ID))
	_, err = s.Tables().GetByReservationIDForUpdate(ctx, res.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s, res, tbl := seedMemory(t)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx Store) error {
		require.NoError(t, tx.Tables().Assign(ctx, tbl.ID, res.ID))
		require.NoError(t, tx.Reservations().UpdateStatus(ctx, res.ID, model.StatusSeated))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	gotTbl, err := s.Tables().GetByID(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Nil(t, gotTbl.ReservationID)
	gotRes, err := s.Reservations().GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusBooked, gotRes.Status)
}

func TestMemoryStoreWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	s, res, tbl := seedMemory(t)

	err := s.WithinTx(ctx, func(tx Store) error {
		if err := tx.Tables().Assign(ctx, tbl.ID, res.ID); err != nil {
			return err
		}
		return tx.Reservations().UpdateStatus(ctx, res.ID, model.StatusSeated)
	})
	require.NoError(t, err)

	gotRes, err := s.Reservations().GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeated, gotRes.Status)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s, res, tbl := seedMemory(t)
	require.NoError(t, s.Tables().Assign(ctx, tbl.ID, res.ID))

	got, err := s.Tables().GetByID(ctx, tbl.ID)
	require.NoError(t, err)
	*got.ReservationID = 999

	again, err := s.Tables().GetByID(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, *again.ReservationID)
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Tables().List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.WithinTx(ctx, func(Store) error { return nil }), context.Canceled)
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/apperr"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/metrics"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/model"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/queue"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/repository"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/validation"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.SeatingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.SeatingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store *repository.MemoryStore
	svc   *Services
	pub   *recordingPublisher
	met   *metrics.Metrics
}

const (
	today    = "2030-01-02" // a Wednesday
	tomorrow = "2030-01-03"
)

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	rules := validation.DefaultRules()
	rules.Now = func() time.Time { return time.Date(2030, 1, 2, 12, 0, 0, 0, time.UTC) }
	f := &fixture{store: repository.NewMemoryStore(), pub: &recordingPublisher{}, met: metrics.New()}
	opts := Options{Rules: rules, Publisher: f.pub, Metrics: f.met}
	for _, m := range mutate {
		m(&opts)
	}
	f.svc = New(f.store, opts)
	return f
}

func (f *fixture) reservation(t *testing.T, people int, date string) *model.Reservation {
	t.Helper()
	res, err := f.svc.Reservations.Create(context.Background(), model.ReservationInput{
		FirstName: "Rick", LastName: "Sanchez", MobileNumber: "202-555-0164",
		ReservationDate: date, ReservationTime: "18:00", People: float64(people),
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) table(t *testing.T, name string, capacity int) *model.Table {
	t.Helper()
	tbl, err := f.svc.Tables.Create(context.Background(), model.TableInput{TableName: name, Capacity: float64(capacity)})
	require.NoError(t, err)
	return tbl
}

func requireKind(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %T", err)
	assert.Equal(t, kind, ae.Kind)
	if msg != "" {
		assert.Equal(t, msg, ae.Message)
	}
}

func TestCreateThenGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.reservation(t, 4, tomorrow)

	got, err := f.svc.Reservations.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusBooked, got.Status)
	assert.Equal(t, "Rick", got.FirstName)
	assert.Equal(t, "Sanchez", got.LastName)
	assert.Equal(t, "202-555-0164", got.MobileNumber)
	assert.Equal(t, tomorrow, got.ReservationDate)
	assert.Equal(t, "18:00", got.ReservationTime)
	assert.Equal(t, 4, got.People)

	_, err = f.svc.Reservations.Get(ctx, 999)
	requireKind(t, err, apperr.KindNotFound, "Reservation 999 does not exist.")
}

func TestCreateRejectsPastDateWithoutStoring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Reservations.Create(ctx, model.ReservationInput{
		FirstName: "a", LastName: "b", MobileNumber: "1",
		ReservationDate: "2023-01-01", ReservationTime: "13:00", People: float64(2),
	})
	requireKind(t, err, apperr.KindValidation, "Reservation must be for a future date.")

	list, err := f.svc.Reservations.List(ctx, "2023-01-01")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateSurvivesCancelledRequest(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.Reservations.Create(ctx, model.ReservationInput{
		FirstName: "a", LastName: "b", MobileNumber: "1",
		ReservationDate: tomorrow, ReservationTime: "13:00", People: float64(2),
	})
	require.NoError(t, err)
	assert.NotZero(t, res.ID)

	// reads follow the caller's context
	_, err = f.svc.Reservations.List(ctx, tomorrow)
	assert.Error(t, err)
}

func TestListValidatesDate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reservations.List(context.Background(), "")
	requireKind(t, err, apperr.KindValidation, "date query parameter is required")
	_, err = f.svc.Reservations.List(context.Background(), "01-02-2030")
	requireKind(t, err, apperr.KindValidation, "")
}

func TestSeatInsufficientCapacityLeavesBothUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tbl := f.table(t, "Bar #1", 1)
	res := f.reservation(t, 3, tomorrow)

	_, err := f.svc.Seating.Seat(ctx, tbl.ID, res.ID)
	requireKind(t, err, apperr.KindConflict, "Table capacity of 1 cannot seat 3 people (insufficient capacity).")

	gotTbl, _ := f.svc.Tables.Get(ctx, tbl.ID)
	assert.Nil(t, gotTbl.ReservationID)
	gotRes, _ := f.svc.Reservations.Get(ctx, res.ID)
	assert.Equal(t, model.StatusBooked, gotRes.Status)
	assert.Empty(t, f.pub.types())
}

func TestSeatOccupiedTableKeepsExistingLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := f.table(t, "#1", 4)
	r1 := f.reservation(t, 4, tomorrow)
	r2 := f.reservation(t, 2, tomorrow)

	out, err := f.svc.Seating.Seat(ctx, t1.ID, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeated, out.Reservation.Status)
	require.NotNil(t, out.Table.ReservationID)
	assert.Equal(t, r1.ID, *out.Table.ReservationID)

	_, err = f.svc.Seating.Seat(ctx, t1.ID, r2.ID)
	requireKind(t, err, apperr.KindConflict, "Table 1 is already occupied.")

	gotTbl, _ := f.svc.Tables.Get(ctx, t1.ID)
	assert.Equal(t, r1.ID, *gotTbl.ReservationID)
	gotR2, _ := f.svc.Reservations.Get(ctx, r2.ID)
	assert.Equal(t, model.StatusBooked, gotR2.Status)
}

func TestSeatPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := f.table(t, "#1", 4)
	t2 := f.table(t, "#2", 4)
	r1 := f.reservation(t, 2, tomorrow)

	_, err := f.svc.Seating.Seat(ctx, 99, r1.ID)
	requireKind(t, err, apperr.KindNotFound, "Table 99 does not exist.")
	_, err = f.svc.Seating.Seat(ctx, t1.ID, 99)
	requireKind(t, err, apperr.KindNotFound, "Reservation 99 does not exist.")

	_, err = f.svc.Seating.Seat(ctx, t1.ID, r1.ID)
	require.NoError(t, err)
	_, err = f.svc.Seating.Seat(ctx, t2.ID, r1.ID)
	requireKind(t, err, apperr.KindConflict, "Reservation 1 is already seated.")

	r2 := f.reservation(t, 2, tomorrow)
	_, err = f.svc.Seating.ChangeStatus(ctx, r2.ID, model.StatusCancelled)
	require.NoError(t, err)
	_, err = f.svc.Seating.Seat(ctx, t2.ID, r2.ID)
	requireKind(t, err, apperr.KindConflict, "Reservation 2 is cancelled and cannot be seated.")
}

func TestSeatThenFinish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tbl := f.table(t, "#1", 6)
	res := f.reservation(t, 6, tomorrow)

	_, err := f.svc.Seating.Seat(ctx, tbl.ID, res.ID)
	require.NoError(t, err)

	out, err := f.svc.Seating.Finish(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Nil(t, out.Table.ReservationID)
	assert.Equal(t, model.StatusFinished, out.Reservation.Status)

	gotRes, _ := f.svc.Reservations.Get(ctx, res.ID)
	assert.Equal(t, model.StatusFinished, gotRes.Status)

	_, err = f.svc.Seating.Finish(ctx, tbl.ID)
	requireKind(t, err, apperr.KindConflict, "Table 1 is not occupied.")
	_, err = f.svc.Seating.Finish(ctx, 42)
	requireKind(t, err, apperr.KindNotFound, "Table 42 does not exist.")

	assert.Equal(t, []string{queue.EventSeated, queue.EventFinished}, f.pub.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.met.SeatingOperations.WithLabelValues("seat", metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.met.SeatingOperations.WithLabelValues("finish", metrics.OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.met.SeatingOperations.WithLabelValues("finish", metrics.OutcomeRejected)))
}

func TestConcurrentSeatsOnOneTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tbl := f.table(t, "#1", 4)

	const n = 25
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = f.reservation(t, 2, tomorrow).ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []int64
		conflicts int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := f.svc.Seating.Seat(ctx, tbl.ID, id)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes = append(successes, id)
			} else if apperr.KindOf(err) == apperr.KindConflict {
				conflicts++
			}
		}(id)
	}
	wg.Wait()

	require.Len(t, successes, 1)
	assert.Equal(t, n-1, conflicts)

	gotTbl, _ := f.svc.Tables.Get(ctx, tbl.ID)
	assert.Equal(t, successes[0], *gotTbl.ReservationID)
	seated := 0
	list, err := f.svc.Reservations.List(ctx, tomorrow)
	require.NoError(t, err)
	for _, r := range list {
		if r.Status == model.StatusSeated {
			seated++
			assert.Equal(t, successes[0], r.ID)
		}
	}
	assert.Equal(t, 1, seated)
}

func TestConcurrentSeatsOfOneReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.reservation(t, 2, tomorrow)

	const n = 10
	tables := make([]int64, n)
	for i := range tables {
		tables[i] = f.table(t, "T"+string(rune('A'+i)), 4).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, id := range tables {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = f.svc.Seating.Seat(ctx, id, res.ID)
		}(i, id)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)

	list, err := f.svc.Tables.List(ctx)
	require.NoError(t, err)
	linked := 0
	for _, tbl := range list {
		if tbl.Occupied() {
			linked++
		}
	}
	assert.Equal(t, 1, linked)
}

func TestSeatSameDayPolicy(t *testing.T) {
	t.Run("off allows future dates", func(t *testing.T) {
		f := newFixture(t)
		tbl := f.table(t, "#1", 2)
		res := f.reservation(t, 2, tomorrow)
		_, err := f.svc.Seating.Seat(context.Background(), tbl.ID, res.ID)
		assert.NoError(t, err)
	})

	t.Run("on rejects other dates", func(t *testing.T) {
		f := newFixture(t, func(o *Options) { o.RequireSameDay = true })
		tbl := f.table(t, "#1", 2)
		res := f.reservation(t, 2, tomorrow)
		_, err := f.svc.Seating.Seat(context.Background(), tbl.ID, res.ID)
		requireKind(t, err, apperr.KindConflict, "Cannot seat a reservation for a different date than today.")
	})

	t.Run("on accepts today", func(t *testing.T) {
		f := newFixture(t, func(o *Options) { o.RequireSameDay = true })
		tbl := f.table(t, "#1", 2)
		res := f.reservation(t, 2, today)
		_, err := f.svc.Seating.Seat(context.Background(), tbl.ID, res.ID)
		assert.NoError(t, err)
	})
}

func TestChangeStatus(t *testing.T) {
	tests := []struct {
		name      string
		seat      bool
		from      model.ReservationStatus
		to        model.ReservationStatus
		wantKind  apperr.Kind
		wantFree  bool
		wantEvent bool
	}{
		{name: "booked to cancelled", from: model.StatusBooked, to: model.StatusCancelled, wantEvent: true},
		{name: "booked to booked is a no-op", from: model.StatusBooked, to: model.StatusBooked},
		{name: "booked to finished", from: model.StatusBooked, to: model.StatusFinished, wantKind: apperr.KindConflict},
		{name: "booked to seated", from: model.StatusBooked, to: model.StatusSeated, wantKind: apperr.KindConflict},
		{name: "seated to finished", seat: true, to: model.StatusFinished, wantFree: true, wantEvent: true},
		{name: "seated to booked", seat: true, to: model.StatusBooked, wantFree: true, wantEvent: true},
		{name: "seated to cancelled", seat: true, to: model.StatusCancelled, wantFree: true, wantEvent: true},
		{name: "seated to seated", seat: true, to: model.StatusSeated, wantKind: apperr.KindConflict},
		{name: "finished is terminal", from: model.StatusFinished, to: model.StatusBooked, wantKind: apperr.KindConflict},
		{name: "cancelled is terminal", from: model.StatusCancelled, to: model.StatusCancelled, wantKind: apperr.KindConflict},
		{name: "unknown status", from: model.StatusBooked, to: "no_show", wantKind: apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			tbl := f.table(t, "#1", 4)
			res := f.reservation(t, 2, tomorrow)

			switch {
			case tt.seat:
				_, err := f.svc.Seating.Seat(ctx, tbl.ID, res.ID)
				require.NoError(t, err)
			case tt.from == model.StatusFinished:
				_, err := f.svc.Seating.Seat(ctx, tbl.ID, res.ID)
				require.NoError(t, err)
				_, err = f.svc.Seating.Finish(ctx, tbl.ID)
				require.NoError(t, err)
			case tt.from == model.StatusCancelled:
				_, err := f.svc.Seating.ChangeStatus(ctx, res.ID, model.StatusCancelled)
				require.NoError(t, err)
			}
			before := len(f.pub.types())

			got, err := f.svc.Seating.ChangeStatus(ctx, res.ID, tt.to)
			if tt.wantKind != 0 {
				requireKind(t, err, tt.wantKind, "")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)

			gotTbl, _ := f.svc.Tables.Get(ctx, tbl.ID)
			if tt.wantFree {
				assert.Nil(t, gotTbl.ReservationID)
			}
			if tt.wantEvent {
				assert.Len(t, f.pub.types(), before+1)
			} else {
				assert.Len(t, f.pub.types(), before)
			}
		})
	}
}

func TestUnseatedReservationCanBeSeatedAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := f.table(t, "#1", 4)
	t2 := f.table(t, "#2", 4)
	res := f.reservation(t, 4, tomorrow)

	_, err := f.svc.Seating.Seat(ctx, t1.ID, res.ID)
	require.NoError(t, err)
	_, err = f.svc.Seating.ChangeStatus(ctx, res.ID, model.StatusBooked)
	require.NoError(t, err)
	out, err := f.svc.Seating.Seat(ctx, t2.ID, res.ID)
	require.NoError(t, err)
	assert.Equal(t, t2.ID, out.Table.ID)
}

func TestUpdateReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tbl := f.table(t, "#1", 4)
	res := f.reservation(t, 2, tomorrow)

	got, err := f.svc.Reservations.Update(ctx, res.ID, map[string]any{"reservation_time": "19:45", "people": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, "19:45", got.ReservationTime)
	assert.Equal(t, 3, got.People)

	_, err = f.svc.Reservations.Update(ctx, 99, map[string]any{"people": float64(3)})
	requireKind(t, err, apperr.KindNotFound, "Reservation 99 does not exist.")

	_, err = f.svc.Seating.Seat(ctx, tbl.ID, res.ID)
	require.NoError(t, err)
	_, err = f.svc.Reservations.Update(ctx, res.ID, map[string]any{"people": float64(5)})
	requireKind(t, err, apperr.KindConflict, "Table capacity of 4 cannot seat 5 people (insufficient capacity).")
	got, err = f.svc.Reservations.Update(ctx, res.ID, map[string]any{"people": float64(4)})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeated, got.Status)

	_, err = f.svc.Seating.Finish(ctx, tbl.ID)
	require.NoError(t, err)
	_, err = f.svc.Reservations.Update(ctx, res.ID, map[string]any{"first_name": "Morty"})
	requireKind(t, err, apperr.KindConflict, "Reservation 1 is finished and cannot be edited.")

	_, err = f.svc.Reservations.Update(ctx, res.ID, map[string]any{"status": "booked"})
	requireKind(t, err, apperr.KindValidation, "")
}

func TestPublishFailureDoesNotFailSeat(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	tbl := f.table(t, "#1", 2)
	res := f.reservation(t, 2, tomorrow)

	out, err := f.svc.Seating.Seat(context.Background(), tbl.ID, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeated, out.Reservation.Status)
	assert.Len(t, f.pub.types(), 1)
}

func TestTableService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.table(t, "Patio", 8)
	f.table(t, "Bar #1", 1)

	list, err := f.svc.Tables.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bar #1", list[0].TableName)

	_, err = f.svc.Tables.Create(ctx, model.TableInput{TableName: "X", Capacity: float64(2)})
	requireKind(t, err, apperr.KindValidation, "'table_name' must be at least 2 characters long.")
	_, err = f.svc.Tables.Get(ctx, 404)
	requireKind(t, err, apperr.KindNotFound, "Table 404 does not exist.")
}

package repository

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/model"
)

// MemoryStore is a Store kept in process memory. It backs DB_DRIVER=memory
// and the service tests. WithinTx holds the store-wide lock for the whole
// callback and restores a snapshot when the callback fails, which gives the
// same all-or-nothing outcome as a MySQL transaction, only serialized.
type MemoryStore struct {
	mu   *sync.RWMutex
	data *memData
	inTx bool
}

type memData struct {
	nextReservationID int64
	nextTableID       int64
	reservations      map[int64]model.Reservation
	tables            map[int64]model.Table
	now               func() time.Time
}

func (d *memData) clone() *memData {
	c := *d
	c.reservations = maps.Clone(d.reservations)
	c.tables = make(map[int64]model.Table, len(d.tables))
	for id, t := range d.tables {
		c.tables[id] = copyTable(t)
	}
	return &c
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.RWMutex{},
		data: &memData{
			nextReservationID: 1,
			nextTableID:       1,
			reservations:      make(map[int64]model.Reservation),
			tables:            make(map[int64]model.Table),
			now:               time.Now,
		},
	}
}

func (s *MemoryStore) Reservations() ReservationRepository { return memReservations{s} }

func (s *MemoryStore) Tables() TableRepository { return memTables{s} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	ok := false
	defer func() {
		if !ok {
			*s.data = *snapshot
		}
	}()
	if err := fn(&MemoryStore{mu: s.mu, data: s.data, inTx: true}); err != nil {
		return err
	}
	ok = true
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() error { return nil }

// read and write take the store lock unless the caller already holds it
// through WithinTx.
func (s *MemoryStore) read() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *MemoryStore) write() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func copyTable(t model.Table) model.Table {
	if t.ReservationID != nil {
		id := *t.ReservationID
		t.ReservationID = &id
	}
	return t
}

type memReservations struct{ s *MemoryStore }

func (r memReservations) ListByDate(ctx context.Context, date string) ([]model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.read()()
	out := make([]model.Reservation, 0)
	for _, res := range r.s.data.reservations {
		if res.ReservationDate == date {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReservationTime != out[j].ReservationTime {
			return out[i].ReservationTime < out[j].ReservationTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memReservations) Create(ctx context.Context, res *model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.write()()
	d := r.s.data
	res.ID = d.nextReservationID
	d.nextReservationID++
	if res.Status == "" {
		res.Status = model.StatusBooked
	}
	now := d.now().UTC()
	res.CreatedAt, res.UpdatedAt = now, now
	d.reservations[res.ID] = *res
	return nil
}

func (r memReservations) GetByID(ctx context.Context, id int64) (*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.read()()
	res, ok := r.s.data.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &res, nil
}

// GetByIDForUpdate needs no extra locking: inside WithinTx the whole store is
// already held.
func (r memReservations) GetByIDForUpdate(ctx context.Context, id int64) (*model.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r memReservations) Update(ctx context.Context, res *model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.write()()
	d := r.s.data
	cur, ok := d.reservations[res.ID]
	if !ok {
		return ErrNotFound
	}
	cur.FirstName = res.FirstName
	cur.LastName = res.LastName
	cur.MobileNumber = res.MobileNumber
	cur.ReservationDate = res.ReservationDate
	cur.ReservationTime = res.ReservationTime
	cur.People = res.People
	cur.UpdatedAt = d.now().UTC()
	d.reservations[res.ID] = cur
	*res = cur
	return nil
}

func (r memReservations) UpdateStatus(ctx context.Context, id int64, status model.ReservationStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.write()()
	d := r.s.data
	cur, ok := d.reservations[id]
	if !ok {
		return ErrNotFound
	}
	cur.Status = status
	cur.UpdatedAt = d.now().UTC()
	d.reservations[id] = cur
	return nil
}

type memTables struct{ s *MemoryStore }

func (r memTables) List(ctx context.Context) ([]model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.read()()
	out := make([]model.Table, 0, len(r.s.data.tables))
	for _, t := range r.s.data.tables {
		out = append(out, copyTable(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TableName != out[j].TableName {
			return out[i].TableName < out[j].TableName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memTables) Create(ctx context.Context, t *model.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.write()()
	d := r.s.data
	t.ID = d.nextTableID
	d.nextTableID++
	t.ReservationID = nil
	d.tables[t.ID] = *t
	return nil
}

func (r memTables) GetByID(ctx context.Context, id int64) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.read()()
	t, ok := r.s.data.tables[id]
	if !ok {
		return nil, ErrNotFound
	}
	t = copyTable(t)
	return &t, nil
}

func (r memTables) GetByIDForUpdate(ctx context.Context, id int64) (*model.Table, error) {
	return r.GetByID(ctx, id)
}

func (r memTables) GetByReservationIDForUpdate(ctx context.Context, reservationID int64) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.read()()
	for _, t := range r.s.data.tables {
		if t.ReservationID != nil && *t.ReservationID == reservationID {
			t = copyTable(t)
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (r memTables) Assign(ctx context.Context, tableID, reservationID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.write()()
	d := r.s.data
	t, ok := d.tables[tableID]
	if !ok {
		return ErrNotFound
	}
	if t.ReservationID != nil {
		return ErrTableOccupied
	}
	for _, other := range d.tables {
		if other.ReservationID != nil && *other.ReservationID == reservationID {
			return ErrAlreadyLinked
		}
	}
	id := reservationID
	t.ReservationID = &id
	d.tables[tableID] = t
	return nil
}

func (r memTables) Clear(ctx context.Context, tableID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.write()()
	t, ok := r.s.data.tables[tableID]
	if !ok {
		return ErrNotFound
	}
	t.ReservationID = nil
	r.s.data.tables[tableID] = t
	return nil
}

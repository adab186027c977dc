package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fleet-dispatch/internal/dispatch-service/core/domain/model"
	"fleet-dispatch/internal/dispatch-service/core/myerrors"
)

// Store keeps bookings and dispatches in process memory. The mutex guards
// only the maps; callers still coordinate through versions.
type Store struct {
	mu         sync.RWMutex
	bookings   map[string]model.Booking
	dispatches map[string]model.Dispatch
}

func NewStore() *Store {
	return &Store{
		bookings:   make(map[string]model.Booking),
		dispatches: make(map[string]model.Dispatch),
	}
}

func (s *Store) CreateBooking(ctx context.Context, b model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[b.ID]; ok {
		return fmt.Errorf("%w: booking %s exists", myerrors.ErrInvalidState, b.ID)
	}
	s.bookings[b.ID] = b
	return nil
}

func (s *Store) CreateDispatch(ctx context.Context, d model.Dispatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[d.BookingID]; !ok {
		return fmt.Errorf("%w: booking %s", myerrors.ErrNotFound, d.BookingID)
	}
	if _, ok := s.dispatches[d.ID]; ok {
		return fmt.Errorf("%w: dispatch %s exists", myerrors.ErrInvalidState, d.ID)
	}
	for _, other := range s.dispatches {
		if other.BookingID == d.BookingID && other.Status != model.DispatchCancelled {
			return fmt.Errorf("%w: booking %s already has active dispatch %s", myerrors.ErrInvalidState, d.BookingID, other.ID)
		}
	}
	s.dispatches[d.ID] = d
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: booking %s", myerrors.ErrNotFound, id)
	}
	return b, nil
}

func (s *Store) GetDispatch(ctx context.Context, id string) (model.Dispatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.dispatches[id]
	if !ok {
		return model.Dispatch{}, fmt.Errorf("%w: dispatch %s", myerrors.ErrNotFound, id)
	}
	return d, nil
}

func (s *Store) ListDispatchesByBooking(ctx context.Context, bookingID string) ([]model.Dispatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Dispatch
	for _, d := range s.dispatches {
		if d.BookingID == bookingID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SwapBooking(ctx context.Context, id string, expectedVersion int64, upd model.BookingUpdate) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: booking %s", myerrors.ErrNotFound, id)
	}
	if b.Version != expectedVersion {
		return model.Booking{}, fmt.Errorf("%w: booking %s", myerrors.ErrVersionConflict, id)
	}
	b = b.Apply(upd)
	s.bookings[id] = b
	return b, nil
}

func (s *Store) SwapDispatch(ctx context.Context, id string, expectedVersion int64, upd model.DispatchUpdate) (model.Dispatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dispatches[id]
	if !ok {
		return model.Dispatch{}, fmt.Errorf("%w: dispatch %s", myerrors.ErrNotFound, id)
	}
	if d.Version != expectedVersion {
		return model.Dispatch{}, fmt.Errorf("%w: dispatch %s", myerrors.ErrVersionConflict, id)
	}
	d = d.Apply(upd)
	s.dispatches[id] = d
	return d, nil
}

// QueryBookingsByCreatedRange yields a snapshot taken under the read lock, in
// created_at order, so yield may call back into the store.
func (s *Store) QueryBookingsByCreatedRange(ctx context.Context, start, end time.Time, yield func(model.Booking) error) error {
	s.mu.RLock()
	var hits []model.Booking
	for _, b := range s.bookings {
		if !b.CreatedAt.Before(start) && b.CreatedAt.Before(end) {
			hits = append(hits, b)
		}
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool { return hits[i].CreatedAt.Before(hits[j].CreatedAt) })
	for _, b := range hits {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := yield(b); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) IsAlive(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

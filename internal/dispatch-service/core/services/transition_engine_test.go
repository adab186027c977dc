package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fleet-dispatch/internal/dispatch-service/adapters/driven/memory"
	"fleet-dispatch/internal/dispatch-service/core/domain/model"
	"fleet-dispatch/internal/dispatch-service/core/myerrors"
	"fleet-dispatch/internal/mylogger"
)

var t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func seedBooking(t *testing.T, store *memory.Store, id string, status model.BookingStatus) model.Booking {
	t.Helper()
	b := model.Booking{
		ID:          id,
		Source:      "Depot A",
		Destination: "Yard B",
		ServiceType: model.ServiceCargo,
		Price:       120,
		UserID:      "user-1",
		Status:      status,
		CreatedAt:   t0,
		UpdatedAt:   t0,
		Version:     1,
	}
	if err := store.CreateBooking(context.Background(), b); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func seedDispatch(t *testing.T, store *memory.Store, id, bookingID string, status model.DispatchStatus) model.Dispatch {
	t.Helper()
	d := model.Dispatch{
		ID:        id,
		BookingID: bookingID,
		Status:    status,
		CreatedAt: t0,
		UpdatedAt: t0,
		Version:   1,
	}
	if err := store.CreateDispatch(context.Background(), d); err != nil {
		t.Fatalf("seed dispatch: %v", err)
	}
	return d
}

func newTestEngine(store *memory.Store) *TransitionEngine {
	e := NewTransitionEngine(mylogger.Discard(), store)
	e.now = func() time.Time { return t0.Add(time.Minute) }
	return e
}

func TestTransitionBooking(t *testing.T) {
	tests := []struct {
		name    string
		status  model.BookingStatus
		version int64
		target  model.BookingStatus
		wantErr error
	}{
		{"pending to confirmed", model.BookingPending, 1, model.BookingConfirmed, nil},
		{"pending to cancelled", model.BookingPending, 1, model.BookingCancelled, nil},
		{"skip is rejected", model.BookingPending, 1, model.BookingInProgress, myerrors.ErrInvalidTransition},
		{"completed is terminal", model.BookingCompleted, 1, model.BookingCancelled, myerrors.ErrInvalidTransition},
		{"cancelled is terminal", model.BookingCancelled, 1, model.BookingPending, myerrors.ErrInvalidTransition},
		{"stale version", model.BookingPending, 7, model.BookingConfirmed, myerrors.ErrVersionConflict},
		{"unknown target", model.BookingPending, 1, model.BookingStatus("lost"), myerrors.ErrValidationFailed},
		{"zero version", model.BookingPending, 0, model.BookingConfirmed, myerrors.ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			seedBooking(t, store, "b1", tt.status)
			e := newTestEngine(store)

			got, err := e.TransitionBooking(context.Background(), "b1", tt.version, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}

			stored, _ := store.GetBooking(context.Background(), "b1")
			if tt.wantErr != nil {
				if stored.Version != 1 || stored.Status != tt.status {
					t.Errorf("failed transition wrote the booking: %+v", stored)
				}
				return
			}
			if got.Status != tt.target || got.Version != 2 {
				t.Errorf("got status %s version %d", got.Status, got.Version)
			}
			if !got.UpdatedAt.Equal(t0.Add(time.Minute)) {
				t.Errorf("updated_at = %v", got.UpdatedAt)
			}
			if stored != got {
				t.Errorf("stored %+v differs from returned %+v", stored, got)
			}
		})
	}
}

func TestTransitionNotFound(t *testing.T) {
	e := newTestEngine(memory.NewStore())
	if _, err := e.TransitionBooking(context.Background(), "nope", 1, model.BookingConfirmed); !errors.Is(err, myerrors.ErrNotFound) {
		t.Errorf("booking: got %v", err)
	}
	if _, err := e.TransitionDispatch(context.Background(), "nope", 1, model.DispatchDispatched); !errors.Is(err, myerrors.ErrNotFound) {
		t.Errorf("dispatch: got %v", err)
	}
}

func TestTransitionDispatchFollowsGraph(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingConfirmed)
	seedDispatch(t, store, "d1", "b1", model.DispatchPending)
	e := newTestEngine(store)
	ctx := context.Background()

	if _, err := e.TransitionDispatch(ctx, "d1", 1, model.DispatchInTransit); !errors.Is(err, myerrors.ErrInvalidTransition) {
		t.Fatalf("pending -> in_transit: got %v", err)
	}

	version := int64(1)
	for _, next := range []model.DispatchStatus{model.DispatchDispatched, model.DispatchInTransit, model.DispatchArrived, model.DispatchCompleted} {
		d, err := e.TransitionDispatch(ctx, "d1", version, next)
		if err != nil {
			t.Fatalf("-> %s: %v", next, err)
		}
		version = d.Version
	}
	if version != 5 {
		t.Errorf("version = %d, want 5", version)
	}
	if _, err := e.TransitionDispatch(ctx, "d1", version, model.DispatchCancelled); !errors.Is(err, myerrors.ErrInvalidTransition) {
		t.Errorf("completed -> cancelled: got %v", err)
	}
}

func TestConcurrentTransitionsSingleWinner(t *testing.T) {
	const n = 32
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingPending)
	e := newTestEngine(store)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
		other     []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.TransitionBooking(context.Background(), "b1", 1, model.BookingConfirmed)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, myerrors.ErrVersionConflict):
				conflicts++
			default:
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins != 1 || conflicts != n-1 || len(other) != 0 {
		t.Fatalf("wins=%d conflicts=%d other=%v", wins, conflicts, other)
	}
	b, _ := store.GetBooking(context.Background(), "b1")
	if b.Version != 2 || b.Status != model.BookingConfirmed {
		t.Errorf("final booking %s v%d", b.Status, b.Version)
	}
}

func TestUpdateDispatchTimestamps(t *testing.T) {
	dispatched := t0.Add(10 * time.Minute)
	early := t0.Add(5 * time.Minute)
	late := t0.Add(40 * time.Minute)

	tests := []struct {
		name    string
		upd     model.DispatchUpdate
		wantErr error
	}{
		{
			name: "dispatch time once",
			upd:  model.DispatchUpdate{DispatchTime: &dispatched},
		},
		{
			name:    "arrival needs dispatch time",
			upd:     model.DispatchUpdate{ArrivalTime: &late},
			wantErr: myerrors.ErrValidationFailed,
		},
		{
			name: "both in order",
			upd:  model.DispatchUpdate{DispatchTime: &dispatched, ArrivalTime: &late},
		},
		{
			name:    "arrival before dispatch",
			upd:     model.DispatchUpdate{DispatchTime: &dispatched, ArrivalTime: &early},
			wantErr: myerrors.ErrValidationFailed,
		},
		{
			name:    "status is not a field update",
			upd:     model.DispatchUpdate{Status: ptr(model.DispatchArrived)},
			wantErr: myerrors.ErrValidationFailed,
		},
		{
			name:    "empty update",
			upd:     model.DispatchUpdate{},
			wantErr: myerrors.ErrValidationFailed,
		},
		{
			name:    "blank driver",
			upd:     model.DispatchUpdate{AssignedDriver: ptr("")},
			wantErr: myerrors.ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			seedBooking(t, store, "b1", model.BookingConfirmed)
			seedDispatch(t, store, "d1", "b1", model.DispatchPending)
			e := newTestEngine(store)

			_, err := e.UpdateDispatch(context.Background(), "d1", 1, tt.upd)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			stored, _ := store.GetDispatch(context.Background(), "d1")
			if tt.wantErr != nil && (stored.Version != 1 || stored.DispatchTime != nil || stored.ArrivalTime != nil) {
				t.Errorf("failed update wrote the dispatch: %+v", stored)
			}
		})
	}
}

func TestUpdateDispatchAlreadySet(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingConfirmed)
	seedDispatch(t, store, "d1", "b1", model.DispatchPending)
	e := newTestEngine(store)
	ctx := context.Background()

	first := t0.Add(time.Hour)
	d, err := e.UpdateDispatch(ctx, "d1", 1, model.DispatchUpdate{DispatchTime: &first})
	if err != nil {
		t.Fatalf("first write: %v", err)
	}

	second := t0.Add(2 * time.Hour)
	if _, err := e.UpdateDispatch(ctx, "d1", d.Version, model.DispatchUpdate{DispatchTime: &second}); !errors.Is(err, myerrors.ErrAlreadySet) {
		t.Fatalf("second write: got %v", err)
	}

	stored, _ := store.GetDispatch(ctx, "d1")
	if !stored.DispatchTime.Equal(first) {
		t.Errorf("dispatch_time = %v, want %v", stored.DispatchTime, first)
	}
}

func TestUpdateDispatchRetired(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingConfirmed)
	seedDispatch(t, store, "d1", "b1", model.DispatchCancelled)
	e := newTestEngine(store)

	at := t0.Add(time.Hour)
	if _, err := e.UpdateDispatch(context.Background(), "d1", 1, model.DispatchUpdate{DispatchTime: &at}); !errors.Is(err, myerrors.ErrInvalidState) {
		t.Errorf("got %v, want ErrInvalidState", err)
	}
}

func TestStampNeverMovesBackwards(t *testing.T) {
	store := memory.NewStore()
	e := NewTransitionEngine(mylogger.Discard(), store)
	e.now = func() time.Time { return t0 }

	later := t0.Add(time.Hour)
	if got := e.stamp(later); !got.Equal(later) {
		t.Errorf("stamp = %v, want %v", got, later)
	}
}

func ptr[T any](v T) *T {
	return &v
}

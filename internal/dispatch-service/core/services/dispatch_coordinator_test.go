package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fleet-dispatch/internal/dispatch-service/adapters/driven/memory"
	"fleet-dispatch/internal/dispatch-service/core/domain/dto"
	messagebrokerdto "fleet-dispatch/internal/dispatch-service/core/domain/message_broker_dto"
	"fleet-dispatch/internal/dispatch-service/core/domain/model"
	"fleet-dispatch/internal/dispatch-service/core/myerrors"
	"fleet-dispatch/internal/mylogger"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []messagebrokerdto.StatusChanged
	err    error
}

func (r *recordingNotifier) Notify(ctx context.Context, evt messagebrokerdto.StatusChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

func (r *recordingNotifier) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.RoutingKey())
	}
	return out
}

func newTestCoordinator(store *memory.Store) (*DispatchCoordinator, *recordingNotifier) {
	n := &recordingNotifier{}
	c := NewDispatchCoordinator(mylogger.Discard(), store, newTestEngine(store), n)
	c.now = func() time.Time { return t0 }
	return c, n
}

func advanceDispatch(t *testing.T, c *DispatchCoordinator, id string, steps ...model.DispatchStatus) dto.DispatchTransitionResult {
	t.Helper()
	var res dto.DispatchTransitionResult
	for _, s := range steps {
		d, err := c.GetDispatch(context.Background(), id)
		if err != nil {
			t.Fatalf("get dispatch: %v", err)
		}
		res, err = c.TransitionDispatch(context.Background(), id, s, d.Version)
		if err != nil {
			t.Fatalf("-> %s: %v", s, err)
		}
	}
	return res
}

func TestInTransitAdvancesConfirmedBooking(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingConfirmed)
	seedDispatch(t, store, "d1", "b1", model.DispatchPending)
	c, n := newTestCoordinator(store)

	res := advanceDispatch(t, c, "d1", model.DispatchDispatched, model.DispatchInTransit)
	if res.Warning != nil {
		t.Fatalf("unexpected warning: %v", res.Warning)
	}
	if res.Booking == nil || res.Booking.Status != model.BookingInProgress {
		t.Fatalf("coupled booking = %+v", res.Booking)
	}

	b, _ := store.GetBooking(context.Background(), "b1")
	if b.Status != model.BookingInProgress || b.Version != 2 {
		t.Errorf("booking %s v%d", b.Status, b.Version)
	}

	want := []string{"dispatch.status.dispatched", "dispatch.status.in_transit", "booking.status.in_progress"}
	got := n.keys()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	if n.events[2].Cause != messagebrokerdto.CauseCoupling || n.events[2].FromStatus != "confirmed" {
		t.Errorf("coupled event = %+v", n.events[2])
	}
}

func TestInTransitLeavesInProgressBooking(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingInProgress)
	seedDispatch(t, store, "d1", "b1", model.DispatchPending)
	c, _ := newTestCoordinator(store)

	res := advanceDispatch(t, c, "d1", model.DispatchDispatched, model.DispatchInTransit)
	if res.Booking != nil || res.Warning != nil {
		t.Errorf("booking = %+v warning = %v", res.Booking, res.Warning)
	}
	b, _ := store.GetBooking(context.Background(), "b1")
	if b.Version != 1 {
		t.Errorf("booking written: v%d", b.Version)
	}
}

func TestDispatchRequiresLiveBooking(t *testing.T) {
	tests := []struct {
		booking model.BookingStatus
		wantErr error
	}{
		{model.BookingPending, myerrors.ErrInvalidState},
		{model.BookingConfirmed, nil},
		{model.BookingInProgress, nil},
		{model.BookingCancelled, myerrors.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(string(tt.booking), func(t *testing.T) {
			store := memory.NewStore()
			seedBooking(t, store, "b1", tt.booking)
			seedDispatch(t, store, "d1", "b1", model.DispatchPending)
			c, _ := newTestCoordinator(store)

			_, err := c.TransitionDispatch(context.Background(), "d1", model.DispatchDispatched, 1)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			b, _ := store.GetBooking(context.Background(), "b1")
			if b.Version != 1 {
				t.Errorf("booking changed: v%d", b.Version)
			}
		})
	}
}

func TestStaleVersionBeatsBookingCheck(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingPending)
	seedDispatch(t, store, "d1", "b1", model.DispatchPending)
	c, _ := newTestCoordinator(store)

	if _, err := c.TransitionDispatch(context.Background(), "d1", model.DispatchDispatched, 9); !errors.Is(err, myerrors.ErrVersionConflict) {
		t.Errorf("got %v, want ErrVersionConflict", err)
	}
}

func TestCompletionCompletesBooking(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingConfirmed)
	seedDispatch(t, store, "d1", "b1", model.DispatchPending)
	c, _ := newTestCoordinator(store)

	res := advanceDispatch(t, c, "d1",
		model.DispatchDispatched, model.DispatchInTransit, model.DispatchArrived, model.DispatchCompleted)
	if res.Warning != nil {
		t.Fatalf("warning: %v", res.Warning)
	}
	if res.Booking == nil || res.Booking.Status != model.BookingCompleted {
		t.Fatalf("booking = %+v", res.Booking)
	}
}

func TestCompletionSkippedKeepsDispatchWrite(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingConfirmed)
	seedDispatch(t, store, "d1", "b1", model.DispatchArrived)
	c, _ := newTestCoordinator(store)

	res, err := c.TransitionDispatch(context.Background(), "d1", model.DispatchCompleted, 1)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !errors.Is(res.Warning, myerrors.ErrCouplingSkipped) {
		t.Fatalf("warning = %v, want ErrCouplingSkipped", res.Warning)
	}
	if res.Dispatch.Status != model.DispatchCompleted {
		t.Errorf("dispatch = %s", res.Dispatch.Status)
	}

	d, _ := store.GetDispatch(context.Background(), "d1")
	b, _ := store.GetBooking(context.Background(), "b1")
	if d.Status != model.DispatchCompleted || b.Status != model.BookingConfirmed {
		t.Errorf("dispatch %s booking %s", d.Status, b.Status)
	}
}

func TestDispatchCancelLeavesBooking(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingInProgress)
	seedDispatch(t, store, "d1", "b1", model.DispatchInTransit)
	c, _ := newTestCoordinator(store)

	res, err := c.TransitionDispatch(context.Background(), "d1", model.DispatchCancelled, 1)
	if err != nil || res.Booking != nil || res.Warning != nil {
		t.Fatalf("res = %+v err = %v", res, err)
	}
	b, _ := store.GetBooking(context.Background(), "b1")
	if b.Status != model.BookingInProgress || b.Version != 1 {
		t.Errorf("booking %s v%d", b.Status, b.Version)
	}
}

func TestBookingCancelCascades(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingInProgress)
	seedDispatch(t, store, "old", "b1", model.DispatchCancelled)
	seedDispatch(t, store, "live", "b1", model.DispatchInTransit)
	c, n := newTestCoordinator(store)

	res, err := c.TransitionBooking(context.Background(), "b1", model.BookingCancelled, 1)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Warning != nil {
		t.Fatalf("warning: %v", res.Warning)
	}
	if len(res.CancelledDispatches) != 1 || res.CancelledDispatches[0].ID != "live" {
		t.Fatalf("cancelled = %+v", res.CancelledDispatches)
	}

	old, _ := store.GetDispatch(context.Background(), "old")
	if old.Version != 1 {
		t.Errorf("retired dispatch rewritten: v%d", old.Version)
	}
	if got := n.keys(); len(got) != 2 || got[1] != "dispatch.status.cancelled" {
		t.Errorf("events = %v", got)
	}
}

func TestAssignDriver(t *testing.T) {
	tests := []struct {
		status  model.DispatchStatus
		wantErr error
	}{
		{model.DispatchPending, nil},
		{model.DispatchDispatched, nil},
		{model.DispatchInTransit, myerrors.ErrInvalidState},
		{model.DispatchCompleted, myerrors.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			store := memory.NewStore()
			seedBooking(t, store, "b1", model.BookingConfirmed)
			seedDispatch(t, store, "d1", "b1", tt.status)
			c, _ := newTestCoordinator(store)

			d, err := c.AssignDriver(context.Background(), "d1", "driver-7")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if d.AssignedDriver == nil || *d.AssignedDriver != "driver-7" || d.Status != tt.status {
				t.Errorf("dispatch = %+v", d)
			}
		})
	}
}

func TestArrivalBeforeDispatchRejected(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingConfirmed)
	seedDispatch(t, store, "d1", "b1", model.DispatchDispatched)
	c, _ := newTestCoordinator(store)
	ctx := context.Background()

	dispatchedAt := t0.Add(time.Hour)
	if _, err := c.RecordDispatchTime(ctx, "d1", dispatchedAt); err != nil {
		t.Fatalf("record dispatch time: %v", err)
	}
	before, _ := store.GetDispatch(ctx, "d1")

	if _, err := c.RecordArrivalTime(ctx, "d1", dispatchedAt.Add(-time.Minute)); !errors.Is(err, myerrors.ErrValidationFailed) {
		t.Fatalf("got %v, want ErrValidationFailed", err)
	}

	after, _ := store.GetDispatch(ctx, "d1")
	if after.Version != before.Version || after.ArrivalTime != nil || !after.DispatchTime.Equal(dispatchedAt) {
		t.Errorf("dispatch changed: %+v", after)
	}

	if _, err := c.RecordDispatchTime(ctx, "d1", dispatchedAt.Add(time.Hour)); !errors.Is(err, myerrors.ErrAlreadySet) {
		t.Errorf("second dispatch time: got %v", err)
	}
	if _, err := c.RecordArrivalTime(ctx, "d1", dispatchedAt.Add(time.Hour)); err != nil {
		t.Errorf("valid arrival: %v", err)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	price := 150.0
	negative := -1.0
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name    string
		req     dto.CreateBookingRequest
		wantErr error
	}{
		{"valid", dto.CreateBookingRequest{Source: "A", Destination: "B", ServiceType: "cargo", Price: &price, UserID: "u1"}, nil},
		{"missing source", dto.CreateBookingRequest{Destination: "B", ServiceType: "cargo", Price: &price, UserID: "u1"}, myerrors.ErrValidationFailed},
		{"long destination", dto.CreateBookingRequest{Source: "A", Destination: string(long), ServiceType: "cargo", Price: &price, UserID: "u1"}, myerrors.ErrValidationFailed},
		{"unknown service", dto.CreateBookingRequest{Source: "A", Destination: "B", ServiceType: "boat", Price: &price, UserID: "u1"}, myerrors.ErrValidationFailed},
		{"negative price", dto.CreateBookingRequest{Source: "A", Destination: "B", ServiceType: "public", Price: &negative, UserID: "u1"}, myerrors.ErrValidationFailed},
		{"missing price", dto.CreateBookingRequest{Source: "A", Destination: "B", ServiceType: "public", UserID: "u1"}, myerrors.ErrValidationFailed},
		{"missing user", dto.CreateBookingRequest{Source: "A", Destination: "B", ServiceType: "passenger", Price: &price}, myerrors.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCoordinator(memory.NewStore())
			b, err := c.CreateBooking(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && (b.Status != model.BookingPending || b.Version != 1 || b.ID == "") {
				t.Errorf("booking = %+v", b)
			}
		})
	}
}

func TestOneActiveDispatchPerBooking(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingConfirmed)
	c, _ := newTestCoordinator(store)
	ctx := context.Background()

	first, err := c.CreateDispatch(ctx, "b1")
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if _, err := c.CreateDispatch(ctx, "b1"); !errors.Is(err, myerrors.ErrInvalidState) {
		t.Fatalf("second dispatch: got %v", err)
	}

	if _, err := c.TransitionDispatch(ctx, first.ID, model.DispatchCancelled, first.Version); err != nil {
		t.Fatalf("cancel first: %v", err)
	}
	if _, err := c.CreateDispatch(ctx, "b1"); err != nil {
		t.Errorf("replacement dispatch: %v", err)
	}
}

func TestCreateDispatchForRetiredBooking(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingCompleted)
	c, _ := newTestCoordinator(store)

	if _, err := c.CreateDispatch(context.Background(), "b1"); !errors.Is(err, myerrors.ErrInvalidState) {
		t.Errorf("got %v", err)
	}
	if _, err := c.CreateDispatch(context.Background(), "missing"); !errors.Is(err, myerrors.ErrNotFound) {
		t.Errorf("missing booking: got %v", err)
	}
}

func TestNotifierFailureDoesNotFailWrite(t *testing.T) {
	store := memory.NewStore()
	seedBooking(t, store, "b1", model.BookingPending)
	c, n := newTestCoordinator(store)
	n.err = errors.New("broker down")

	res, err := c.TransitionBooking(context.Background(), "b1", model.BookingConfirmed, 1)
	if err != nil || res.Booking.Status != model.BookingConfirmed {
		t.Fatalf("res = %+v err = %v", res, err)
	}
}

func TestFanoutNotifierJoinsErrors(t *testing.T) {
	ok := &recordingNotifier{}
	bad := &recordingNotifier{err: errors.New("closed")}
	f := NewFanoutNotifier(ok, nil, bad)

	err := f.Notify(context.Background(), messagebrokerdto.StatusChanged{EntityType: "booking", ToStatus: "confirmed"})
	if err == nil || err.Error() != "closed" {
		t.Errorf("err = %v", err)
	}
	if len(ok.events) != 1 || len(bad.events) != 1 {
		t.Errorf("delivered %d/%d", len(ok.events), len(bad.events))
	}
}

// cancelOnSwap cancels the booking right before the first dispatch write,
// the way a concurrent booking cancel would.
type cancelOnSwap struct {
	*memory.Store
	bookingID string
	done      bool
}

func (s *cancelOnSwap) SwapDispatch(ctx context.Context, id string, expectedVersion int64, upd model.DispatchUpdate) (model.Dispatch, error) {
	if !s.done {
		s.done = true
		b, err := s.GetBooking(ctx, s.bookingID)
		if err != nil {
			return model.Dispatch{}, err
		}
		cancelled := model.BookingCancelled
		if _, err := s.SwapBooking(ctx, s.bookingID, b.Version, model.BookingUpdate{Status: &cancelled, UpdatedAt: b.UpdatedAt}); err != nil {
			return model.Dispatch{}, err
		}
	}
	return s.Store.SwapDispatch(ctx, id, expectedVersion, upd)
}

func TestDispatchedWarnsWhenBookingCancelledMidway(t *testing.T) {
	mem := memory.NewStore()
	seedBooking(t, mem, "b1", model.BookingConfirmed)
	seedDispatch(t, mem, "d1", "b1", model.DispatchPending)

	store := &cancelOnSwap{Store: mem, bookingID: "b1"}
	engine := NewTransitionEngine(mylogger.Discard(), store)
	c := NewDispatchCoordinator(mylogger.Discard(), store, engine, nil)

	res, err := c.TransitionDispatch(context.Background(), "d1", model.DispatchDispatched, 1)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if res.Dispatch.Status != model.DispatchDispatched {
		t.Errorf("dispatch = %s", res.Dispatch.Status)
	}
	if !errors.Is(res.Warning, myerrors.ErrInvalidState) {
		t.Errorf("warning = %v, want InvalidState", res.Warning)
	}
}

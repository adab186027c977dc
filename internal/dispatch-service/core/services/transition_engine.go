package services

import (
	"context"
	"fmt"
	"time"

	"fleet-dispatch/internal/dispatch-service/core/domain/model"
	"fleet-dispatch/internal/dispatch-service/core/myerrors"
	"fleet-dispatch/internal/dispatch-service/core/ports"
	"fleet-dispatch/internal/mylogger"
)

// TransitionEngine is the only component that writes bookings and dispatches
// after creation. Every write is a single compare-and-swap on the version.
type TransitionEngine struct {
	mylog mylogger.Logger
	store ports.IEntityStore
	now   func() time.Time
}

func NewTransitionEngine(log mylogger.Logger, store ports.IEntityStore) *TransitionEngine {
	return &TransitionEngine{
		mylog: log,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (e *TransitionEngine) TransitionBooking(ctx context.Context, bookingID string, fromVersion int64, target model.BookingStatus) (model.Booking, error) {
	log := e.mylog.Action("TransitionBooking").With("booking_id", bookingID, "target", target)

	if !target.Valid() {
		return model.Booking{}, fmt.Errorf("%w: unknown booking status %q", myerrors.ErrValidationFailed, target)
	}
	if fromVersion < 1 {
		return model.Booking{}, fmt.Errorf("%w: version must be positive", myerrors.ErrValidationFailed)
	}

	cur, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if cur.Version != fromVersion {
		return model.Booking{}, fmt.Errorf("%w: booking %s is at version %d, not %d", myerrors.ErrVersionConflict, bookingID, cur.Version, fromVersion)
	}
	if !cur.Status.CanTransition(target) {
		return model.Booking{}, fmt.Errorf("%w: booking %s -> %s", myerrors.ErrInvalidTransition, cur.Status, target)
	}

	updated, err := e.store.SwapBooking(ctx, bookingID, fromVersion, model.BookingUpdate{
		Status:    &target,
		UpdatedAt: e.stamp(cur.UpdatedAt),
	})
	if err != nil {
		return model.Booking{}, err
	}

	log.Info("booking status changed", "from", cur.Status, "version", updated.Version)
	return updated, nil
}

func (e *TransitionEngine) TransitionDispatch(ctx context.Context, dispatchID string, fromVersion int64, target model.DispatchStatus) (model.Dispatch, error) {
	log := e.mylog.Action("TransitionDispatch").With("dispatch_id", dispatchID, "target", target)

	if !target.Valid() {
		return model.Dispatch{}, fmt.Errorf("%w: unknown dispatch status %q", myerrors.ErrValidationFailed, target)
	}
	if fromVersion < 1 {
		return model.Dispatch{}, fmt.Errorf("%w: version must be positive", myerrors.ErrValidationFailed)
	}

	cur, err := e.store.GetDispatch(ctx, dispatchID)
	if err != nil {
		return model.Dispatch{}, err
	}
	if cur.Version != fromVersion {
		return model.Dispatch{}, fmt.Errorf("%w: dispatch %s is at version %d, not %d", myerrors.ErrVersionConflict, dispatchID, cur.Version, fromVersion)
	}
	if !cur.Status.CanTransition(target) {
		return model.Dispatch{}, fmt.Errorf("%w: dispatch %s -> %s", myerrors.ErrInvalidTransition, cur.Status, target)
	}

	updated, err := e.store.SwapDispatch(ctx, dispatchID, fromVersion, model.DispatchUpdate{
		Status:    &target,
		UpdatedAt: e.stamp(cur.UpdatedAt),
	})
	if err != nil {
		return model.Dispatch{}, err
	}

	log.Info("dispatch status changed", "from", cur.Status, "version", updated.Version)
	return updated, nil
}

// UpdateDispatch writes non-status dispatch fields. Timestamps are one-shot and
// arrival_time may only follow dispatch_time.
func (e *TransitionEngine) UpdateDispatch(ctx context.Context, dispatchID string, fromVersion int64, upd model.DispatchUpdate) (model.Dispatch, error) {
	log := e.mylog.Action("UpdateDispatch").With("dispatch_id", dispatchID)

	if upd.Status != nil {
		return model.Dispatch{}, fmt.Errorf("%w: status changes go through TransitionDispatch", myerrors.ErrValidationFailed)
	}
	if upd.AssignedDriver == nil && upd.DispatchTime == nil && upd.ArrivalTime == nil {
		return model.Dispatch{}, fmt.Errorf("%w: empty update", myerrors.ErrValidationFailed)
	}
	if fromVersion < 1 {
		return model.Dispatch{}, fmt.Errorf("%w: version must be positive", myerrors.ErrValidationFailed)
	}
	if upd.AssignedDriver != nil && *upd.AssignedDriver == "" {
		return model.Dispatch{}, fmt.Errorf("%w: driver id is required", myerrors.ErrValidationFailed)
	}

	cur, err := e.store.GetDispatch(ctx, dispatchID)
	if err != nil {
		return model.Dispatch{}, err
	}
	if cur.Version != fromVersion {
		return model.Dispatch{}, fmt.Errorf("%w: dispatch %s is at version %d, not %d", myerrors.ErrVersionConflict, dispatchID, cur.Version, fromVersion)
	}
	if cur.Status.Terminal() {
		return model.Dispatch{}, fmt.Errorf("%w: dispatch %s is %s", myerrors.ErrInvalidState, dispatchID, cur.Status)
	}

	if err := checkTimestamps(cur, &upd); err != nil {
		return model.Dispatch{}, err
	}

	upd.UpdatedAt = e.stamp(cur.UpdatedAt)
	updated, err := e.store.SwapDispatch(ctx, dispatchID, fromVersion, upd)
	if err != nil {
		return model.Dispatch{}, err
	}

	log.Info("dispatch updated", "version", updated.Version)
	return updated, nil
}

func checkTimestamps(cur model.Dispatch, upd *model.DispatchUpdate) error {
	dispatchTime := cur.DispatchTime
	if upd.DispatchTime != nil {
		if cur.DispatchTime != nil {
			return fmt.Errorf("%w: dispatch_time", myerrors.ErrAlreadySet)
		}
		if upd.DispatchTime.IsZero() {
			return fmt.Errorf("%w: dispatch_time is zero", myerrors.ErrValidationFailed)
		}
		t := upd.DispatchTime.UTC()
		upd.DispatchTime = &t
		dispatchTime = &t
	}

	if upd.ArrivalTime != nil {
		if cur.ArrivalTime != nil {
			return fmt.Errorf("%w: arrival_time", myerrors.ErrAlreadySet)
		}
		if dispatchTime == nil {
			return fmt.Errorf("%w: arrival_time requires dispatch_time", myerrors.ErrValidationFailed)
		}
		t := upd.ArrivalTime.UTC()
		if t.Before(*dispatchTime) {
			return fmt.Errorf("%w: arrival_time %s is before dispatch_time %s",
				myerrors.ErrValidationFailed, t.Format(time.RFC3339), dispatchTime.Format(time.RFC3339))
		}
		upd.ArrivalTime = &t
	}
	return nil
}

// stamp never moves updated_at backwards across writes.
func (e *TransitionEngine) stamp(prev time.Time) time.Time {
	now := e.now()
	if now.Before(prev) {
		return prev
	}
	return now
}

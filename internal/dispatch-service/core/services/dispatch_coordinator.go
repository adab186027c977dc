package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"fleet-dispatch/internal/dispatch-service/core/domain/dto"
	messagebrokerdto "fleet-dispatch/internal/dispatch-service/core/domain/message_broker_dto"
	"fleet-dispatch/internal/dispatch-service/core/domain/model"
	"fleet-dispatch/internal/dispatch-service/core/myerrors"
	"fleet-dispatch/internal/dispatch-service/core/ports"
	"fleet-dispatch/internal/mylogger"

	"github.com/google/uuid"
)

const maxPlaceLen = 255

// DispatchCoordinator applies dispatch transitions through the engine and
// carries their effect over to the owning booking. Coupling runs one way only:
// dispatch to booking.
type DispatchCoordinator struct {
	mylog    mylogger.Logger
	store    ports.IEntityStore
	engine   *TransitionEngine
	notifier ports.IStatusNotifier
	now      func() time.Time
}

func NewDispatchCoordinator(
	log mylogger.Logger,
	store ports.IEntityStore,
	engine *TransitionEngine,
	notifier ports.IStatusNotifier,
) *DispatchCoordinator {
	return &DispatchCoordinator{
		mylog:    log,
		store:    store,
		engine:   engine,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (c *DispatchCoordinator) CreateBooking(ctx context.Context, req dto.CreateBookingRequest) (model.Booking, error) {
	log := c.mylog.Action("CreateBooking")

	if err := validateBooking(req); err != nil {
		return model.Booking{}, err
	}

	now := c.now()
	b := model.Booking{
		ID:          uuid.NewString(),
		Source:      strings.TrimSpace(req.Source),
		Destination: strings.TrimSpace(req.Destination),
		ServiceType: model.ServiceType(req.ServiceType),
		Price:       *req.Price,
		UserID:      req.UserID,
		TruckID:     req.TruckID,
		Status:      model.BookingPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if err := c.store.CreateBooking(ctx, b); err != nil {
		log.Error("cannot create booking", err)
		return model.Booking{}, err
	}

	log.Info("booking created", "booking_id", b.ID, "service_type", b.ServiceType)
	return b, nil
}

func validateBooking(req dto.CreateBookingRequest) error {
	var problems []string
	if s := strings.TrimSpace(req.Source); s == "" || len(s) > maxPlaceLen {
		problems = append(problems, "source must be 1-255 characters")
	}
	if d := strings.TrimSpace(req.Destination); d == "" || len(d) > maxPlaceLen {
		problems = append(problems, "destination must be 1-255 characters")
	}
	if !model.ServiceType(req.ServiceType).Valid() {
		problems = append(problems, fmt.Sprintf("unknown service_type %q", req.ServiceType))
	}
	switch {
	case req.Price == nil:
		problems = append(problems, "price is required")
	case math.IsNaN(*req.Price) || math.IsInf(*req.Price, 0) || *req.Price < 0:
		problems = append(problems, "price must be a non-negative number")
	}
	if strings.TrimSpace(req.UserID) == "" {
		problems = append(problems, "user_id is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", myerrors.ErrValidationFailed, strings.Join(problems, "; "))
	}
	return nil
}

func (c *DispatchCoordinator) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	return c.store.GetBooking(ctx, id)
}

func (c *DispatchCoordinator) GetDispatch(ctx context.Context, id string) (model.Dispatch, error) {
	return c.store.GetDispatch(ctx, id)
}

// CreateDispatch opens a dispatch for a live booking. The store refuses a
// second non-cancelled dispatch for the same booking.
func (c *DispatchCoordinator) CreateDispatch(ctx context.Context, bookingID string) (model.Dispatch, error) {
	log := c.mylog.Action("CreateDispatch").With("booking_id", bookingID)

	b, err := c.store.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Dispatch{}, err
	}
	if b.Status.Terminal() {
		return model.Dispatch{}, fmt.Errorf("%w: booking %s is %s", myerrors.ErrInvalidState, bookingID, b.Status)
	}

	now := c.now()
	d := model.Dispatch{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		Status:    model.DispatchPending,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := c.store.CreateDispatch(ctx, d); err != nil {
		if !errors.Is(err, myerrors.ErrInvalidState) {
			log.Error("cannot create dispatch", err)
		}
		return model.Dispatch{}, err
	}

	log.Info("dispatch created", "dispatch_id", d.ID)
	return d, nil
}

// TransitionBooking moves a booking one edge. Cancelling a booking also
// cancels every dispatch of it that is still open; failures there are
// reported in Warning.
func (c *DispatchCoordinator) TransitionBooking(ctx context.Context, bookingID string, target model.BookingStatus, fromVersion int64) (dto.BookingTransitionResult, error) {
	log := c.mylog.Action("CoordinatorTransitionBooking").With("booking_id", bookingID)

	prev, err := c.store.GetBooking(ctx, bookingID)
	if err != nil {
		return dto.BookingTransitionResult{}, err
	}
	updated, err := c.engine.TransitionBooking(ctx, bookingID, fromVersion, target)
	if err != nil {
		return dto.BookingTransitionResult{}, err
	}
	c.publish(ctx, bookingEvent(prev.Status, updated, messagebrokerdto.CauseRequest))

	res := dto.BookingTransitionResult{Booking: updated}
	if target != model.BookingCancelled {
		return res, nil
	}

	dispatches, err := c.store.ListDispatchesByBooking(ctx, bookingID)
	if err != nil {
		log.Error("cannot list dispatches for cascade", err)
		res.Warning = fmt.Errorf("cancel dispatches: %w", err)
		return res, nil
	}

	var errs []error
	for _, d := range dispatches {
		if d.Status.Terminal() {
			continue
		}
		cancelled, err := c.engine.TransitionDispatch(ctx, d.ID, d.Version, model.DispatchCancelled)
		if err != nil {
			log.Warn("cannot cancel dispatch", "dispatch_id", d.ID, "error", err)
			errs = append(errs, fmt.Errorf("cancel dispatch %s: %w", d.ID, err))
			continue
		}
		c.publish(ctx, dispatchEvent(d.Status, cancelled, messagebrokerdto.CauseCascade))
		res.CancelledDispatches = append(res.CancelledDispatches, cancelled)
	}
	res.Warning = errors.Join(errs...)
	return res, nil
}

// TransitionDispatch writes the dispatch transition and then applies the
// booking coupling. A coupling failure never undoes the dispatch write.
func (c *DispatchCoordinator) TransitionDispatch(ctx context.Context, dispatchID string, target model.DispatchStatus, fromVersion int64) (dto.DispatchTransitionResult, error) {
	log := c.mylog.Action("CoordinatorTransitionDispatch").With("dispatch_id", dispatchID, "target", target)

	prev, err := c.store.GetDispatch(ctx, dispatchID)
	if err != nil {
		return dto.DispatchTransitionResult{}, err
	}

	// Only check the booking when the engine would accept the edge, so callers
	// still see VersionConflict or InvalidTransition first.
	if target == model.DispatchDispatched && prev.Version == fromVersion && prev.Status.CanTransition(target) {
		b, err := c.store.GetBooking(ctx, prev.BookingID)
		if err != nil {
			return dto.DispatchTransitionResult{}, err
		}
		if b.Status != model.BookingConfirmed && b.Status != model.BookingInProgress {
			return dto.DispatchTransitionResult{}, fmt.Errorf("%w: booking %s is %s", myerrors.ErrInvalidState, b.ID, b.Status)
		}
	}

	updated, err := c.engine.TransitionDispatch(ctx, dispatchID, fromVersion, target)
	if err != nil {
		return dto.DispatchTransitionResult{}, err
	}
	c.publish(ctx, dispatchEvent(prev.Status, updated, messagebrokerdto.CauseRequest))

	res := dto.DispatchTransitionResult{Dispatch: updated}
	switch target {
	case model.DispatchDispatched:
		// the booking check above is a separate read; a cancel may land in between
		res.Warning = c.recheckBooking(ctx, updated.BookingID)
	case model.DispatchInTransit:
		res.Booking, res.Warning = c.couple(ctx, updated.BookingID, model.BookingConfirmed, model.BookingInProgress, false)
	case model.DispatchCompleted:
		res.Booking, res.Warning = c.couple(ctx, updated.BookingID, model.BookingInProgress, model.BookingCompleted, true)
	}
	if res.Warning != nil {
		log.Warn("booking coupling not applied", "booking_id", updated.BookingID, "reason", res.Warning.Error())
	}
	return res, nil
}

// recheckBooking reports a booking that left confirmed/in_progress while a
// dispatch was being sent. The dispatch write stands.
func (c *DispatchCoordinator) recheckBooking(ctx context.Context, bookingID string) error {
	b, err := c.store.GetBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("re-read booking %s: %w", bookingID, err)
	}
	if b.Status != model.BookingConfirmed && b.Status != model.BookingInProgress {
		return fmt.Errorf("%w: booking %s became %s while the dispatch was sent", myerrors.ErrInvalidState, b.ID, b.Status)
	}
	return nil
}

// couple drives the booking from -> to when it is currently in from. With
// strict set, a booking in any other status yields ErrCouplingSkipped.
func (c *DispatchCoordinator) couple(ctx context.Context, bookingID string, from, to model.BookingStatus, strict bool) (*model.Booking, error) {
	b, err := c.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("read booking %s: %w", bookingID, err)
	}
	if b.Status != from {
		if strict {
			return nil, fmt.Errorf("%w: booking %s is %s, not %s", myerrors.ErrCouplingSkipped, bookingID, b.Status, from)
		}
		return nil, nil
	}

	updated, err := c.engine.TransitionBooking(ctx, bookingID, b.Version, to)
	if err != nil {
		return nil, fmt.Errorf("advance booking %s to %s: %w", bookingID, to, err)
	}
	c.publish(ctx, bookingEvent(b.Status, updated, messagebrokerdto.CauseCoupling))
	return &updated, nil
}

func (c *DispatchCoordinator) AssignDriver(ctx context.Context, dispatchID, driverID string) (model.Dispatch, error) {
	log := c.mylog.Action("AssignDriver").With("dispatch_id", dispatchID, "driver_id", driverID)

	if strings.TrimSpace(driverID) == "" {
		return model.Dispatch{}, fmt.Errorf("%w: driver id is required", myerrors.ErrValidationFailed)
	}
	d, err := c.store.GetDispatch(ctx, dispatchID)
	if err != nil {
		return model.Dispatch{}, err
	}
	if d.Status != model.DispatchPending && d.Status != model.DispatchDispatched {
		return model.Dispatch{}, fmt.Errorf("%w: cannot assign driver to %s dispatch", myerrors.ErrInvalidState, d.Status)
	}

	updated, err := c.engine.UpdateDispatch(ctx, dispatchID, d.Version, model.DispatchUpdate{AssignedDriver: &driverID})
	if err != nil {
		return model.Dispatch{}, err
	}
	log.Info("driver assigned")
	return updated, nil
}

func (c *DispatchCoordinator) RecordDispatchTime(ctx context.Context, dispatchID string, at time.Time) (model.Dispatch, error) {
	d, err := c.store.GetDispatch(ctx, dispatchID)
	if err != nil {
		return model.Dispatch{}, err
	}
	return c.engine.UpdateDispatch(ctx, dispatchID, d.Version, model.DispatchUpdate{DispatchTime: &at})
}

func (c *DispatchCoordinator) RecordArrivalTime(ctx context.Context, dispatchID string, at time.Time) (model.Dispatch, error) {
	d, err := c.store.GetDispatch(ctx, dispatchID)
	if err != nil {
		return model.Dispatch{}, err
	}
	return c.engine.UpdateDispatch(ctx, dispatchID, d.Version, model.DispatchUpdate{ArrivalTime: &at})
}

func (c *DispatchCoordinator) publish(ctx context.Context, evt messagebrokerdto.StatusChanged) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, evt); err != nil {
		c.mylog.Action("publish").Warn("status event not delivered",
			"entity_type", evt.EntityType, "entity_id", evt.EntityID, "to_status", evt.ToStatus, "error", err)
	}
}

func bookingEvent(from model.BookingStatus, b model.Booking, cause string) messagebrokerdto.StatusChanged {
	return messagebrokerdto.StatusChanged{
		EventID:    uuid.NewString(),
		EntityType: messagebrokerdto.EntityBooking,
		EntityID:   b.ID,
		BookingID:  b.ID,
		FromStatus: string(from),
		ToStatus:   string(b.Status),
		Version:    b.Version,
		Cause:      cause,
		OccurredAt: b.UpdatedAt,
	}
}

func dispatchEvent(from model.DispatchStatus, d model.Dispatch, cause string) messagebrokerdto.StatusChanged {
	return messagebrokerdto.StatusChanged{
		EventID:    uuid.NewString(),
		EntityType: messagebrokerdto.EntityDispatch,
		EntityID:   d.ID,
		BookingID:  d.BookingID,
		FromStatus: string(from),
		ToStatus:   string(d.Status),
		Version:    d.Version,
		Cause:      cause,
		OccurredAt: d.UpdatedAt,
	}
}

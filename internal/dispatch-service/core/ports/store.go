package ports

import (
	"context"
	"time"

	"fleet-dispatch/internal/dispatch-service/core/domain/model"
)

// IEntityStore persists bookings and dispatches. Swap* writes only when the
// stored version equals expectedVersion and returns the entity as written.
type IEntityStore interface {
	CreateBooking(ctx context.Context, b model.Booking) error
	CreateDispatch(ctx context.Context, d model.Dispatch) error

	GetBooking(ctx context.Context, id string) (model.Booking, error)
	GetDispatch(ctx context.Context, id string) (model.Dispatch, error)
	ListDispatchesByBooking(ctx context.Context, bookingID string) ([]model.Dispatch, error)

	SwapBooking(ctx context.Context, id string, expectedVersion int64, upd model.BookingUpdate) (model.Booking, error)
	SwapDispatch(ctx context.Context, id string, expectedVersion int64, upd model.DispatchUpdate) (model.Dispatch, error)

	// QueryBookingsByCreatedRange calls yield for each booking with start <= created_at < end.
	QueryBookingsByCreatedRange(ctx context.Context, start, end time.Time, yield func(model.Booking) error) error

	IsAlive(ctx context.Context) error
	Close() error
}

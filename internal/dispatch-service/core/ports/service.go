package ports

import (
	"context"
	"time"

	"fleet-dispatch/internal/dispatch-service/core/domain/dto"
	"fleet-dispatch/internal/dispatch-service/core/domain/model"
)

type IDispatchCoordinator interface {
	CreateBooking(ctx context.Context, req dto.CreateBookingRequest) (model.Booking, error)
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	TransitionBooking(ctx context.Context, bookingID string, target model.BookingStatus, fromVersion int64) (dto.BookingTransitionResult, error)

	CreateDispatch(ctx context.Context, bookingID string) (model.Dispatch, error)
	GetDispatch(ctx context.Context, id string) (model.Dispatch, error)
	TransitionDispatch(ctx context.Context, dispatchID string, target model.DispatchStatus, fromVersion int64) (dto.DispatchTransitionResult, error)

	AssignDriver(ctx context.Context, dispatchID, driverID string) (model.Dispatch, error)
	RecordDispatchTime(ctx context.Context, dispatchID string, at time.Time) (model.Dispatch, error)
	RecordArrivalTime(ctx context.Context, dispatchID string, at time.Time) (model.Dispatch, error)
}

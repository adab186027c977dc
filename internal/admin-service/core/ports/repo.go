package ports

import (
	"context"
	"time"

	"fleet-dispatch/internal/admin-service/core/domain/dto"
)

type IDB interface {
	IsAlive(ctx context.Context) error
	Close() error
}

// IBookingSource streams bookings with start <= created_at < end.
type IBookingSource interface {
	QueryBookingsByCreatedRange(ctx context.Context, start, end time.Time, yield func(dto.BookingRecord) error) error
}

package db

import (
	"context"
	"fmt"
	"time"

	"fleet-dispatch/internal/admin-service/core/domain/dto"

	"github.com/jmoiron/sqlx"
)

const bookingsInRangeQuery = `SELECT id, service_type, status, price, created_at
FROM bookings
WHERE created_at >= ? AND created_at < ?
ORDER BY created_at`

type BookingsRepo struct {
	conn *sqlx.DB
}

func NewBookingsRepo(conn *sqlx.DB) *BookingsRepo {
	return &BookingsRepo{conn: conn}
}

// QueryBookingsByCreatedRange streams rows instead of loading the window into memory.
func (r *BookingsRepo) QueryBookingsByCreatedRange(ctx context.Context, start, end time.Time, yield func(dto.BookingRecord) error) error {
	rows, err := r.conn.QueryxContext(ctx, r.conn.Rebind(bookingsInRangeQuery), start.UTC(), end.UTC())
	if err != nil {
		return fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec dto.BookingRecord
		if err := rows.StructScan(&rec); err != nil {
			return fmt.Errorf("scan booking: %w", err)
		}
		if err := yield(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleet-dispatch/internal/dispatch-service/core/domain/model"
	"fleet-dispatch/internal/dispatch-service/core/myerrors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	bookingColumns  = `id, source, destination, service_type, price, user_id, truck_id, status, created_at, updated_at, version`
	dispatchColumns = `id, booking_id, assigned_driver, dispatch_time, arrival_time, status, created_at, updated_at, version`

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgInvalidText         = "22P02"
)

type EntityStore struct {
	db *DB
}

func NewEntityStore(db *DB) *EntityStore {
	return &EntityStore{
		db: db,
	}
}

func (s *EntityStore) CreateBooking(ctx context.Context, b model.Booking) error {
	q := `INSERT INTO bookings (` + bookingColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.conn.ExecContext(ctx, q,
		b.ID, b.Source, b.Destination, string(b.ServiceType), b.Price, b.UserID, b.TruckID,
		string(b.Status), b.CreatedAt, b.UpdatedAt, b.Version,
	)
	if err != nil {
		return translate(err, "booking", b.ID)
	}
	return nil
}

// CreateDispatch relies on dispatches_one_active_idx to refuse a second live dispatch.
func (s *EntityStore) CreateDispatch(ctx context.Context, d model.Dispatch) error {
	q := `INSERT INTO dispatches (` + dispatchColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.conn.ExecContext(ctx, q,
		d.ID, d.BookingID, d.AssignedDriver, d.DispatchTime, d.ArrivalTime,
		string(d.Status), d.CreatedAt, d.UpdatedAt, d.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("%w: booking %s", myerrors.ErrNotFound, d.BookingID)
		}
		return translate(err, "dispatch", d.ID)
	}
	return nil
}

func (s *EntityStore) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var b model.Booking
	if err := s.db.conn.GetContext(ctx, &b, q, id); err != nil {
		return model.Booking{}, translate(err, "booking", id)
	}
	return b, nil
}

func (s *EntityStore) GetDispatch(ctx context.Context, id string) (model.Dispatch, error) {
	q := `SELECT ` + dispatchColumns + ` FROM dispatches WHERE id = $1`

	var d model.Dispatch
	if err := s.db.conn.GetContext(ctx, &d, q, id); err != nil {
		return model.Dispatch{}, translate(err, "dispatch", id)
	}
	return d, nil
}

func (s *EntityStore) ListDispatchesByBooking(ctx context.Context, bookingID string) ([]model.Dispatch, error) {
	q := `SELECT ` + dispatchColumns + ` FROM dispatches WHERE booking_id = $1 ORDER BY created_at`

	var out []model.Dispatch
	if err := s.db.conn.SelectContext(ctx, &out, q, bookingID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgInvalidText {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func (s *EntityStore) SwapBooking(ctx context.Context, id string, expectedVersion int64, upd model.BookingUpdate) (model.Booking, error) {
	sets := []string{"updated_at = ?"}
	args := []any{upd.UpdatedAt}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}

	var b model.Booking
	q, args := s.swapQuery("bookings", bookingColumns, sets, args, id, expectedVersion)
	if err := s.db.conn.GetContext(ctx, &b, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Booking{}, s.missOrConflict(ctx, "bookings", "booking", id)
		}
		return model.Booking{}, translate(err, "booking", id)
	}
	return b, nil
}

func (s *EntityStore) SwapDispatch(ctx context.Context, id string, expectedVersion int64, upd model.DispatchUpdate) (model.Dispatch, error) {
	sets := []string{"updated_at = ?"}
	args := []any{upd.UpdatedAt}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}
	if upd.AssignedDriver != nil {
		sets = append(sets, "assigned_driver = ?")
		args = append(args, *upd.AssignedDriver)
	}
	if upd.DispatchTime != nil {
		sets = append(sets, "dispatch_time = ?")
		args = append(args, *upd.DispatchTime)
	}
	if upd.ArrivalTime != nil {
		sets = append(sets, "arrival_time = ?")
		args = append(args, *upd.ArrivalTime)
	}

	var d model.Dispatch
	q, args := s.swapQuery("dispatches", dispatchColumns, sets, args, id, expectedVersion)
	if err := s.db.conn.GetContext(ctx, &d, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Dispatch{}, s.missOrConflict(ctx, "dispatches", "dispatch", id)
		}
		return model.Dispatch{}, translate(err, "dispatch", id)
	}
	return d, nil
}

// swapQuery builds a single-row compare-and-swap: the row is written only if
// its version still matches, and the written row is returned.
func (s *EntityStore) swapQuery(table, columns string, sets []string, args []any, id string, expectedVersion int64) (string, []any) {
	q := fmt.Sprintf(`UPDATE %s SET %s, version = version + 1 WHERE id = ? AND version = ? RETURNING %s`,
		table, strings.Join(sets, ", "), columns)
	return s.db.conn.Rebind(q), append(args, id, expectedVersion)
}

func (s *EntityStore) missOrConflict(ctx context.Context, table, entity, id string) error {
	var exists bool
	q := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := s.db.conn.GetContext(ctx, &exists, q, id); err != nil {
		return translate(err, entity, id)
	}
	if !exists {
		return fmt.Errorf("%w: %s %s", myerrors.ErrNotFound, entity, id)
	}
	return fmt.Errorf("%w: %s %s", myerrors.ErrVersionConflict, entity, id)
}

// QueryBookingsByCreatedRange streams rows instead of loading the window into memory.
func (s *EntityStore) QueryBookingsByCreatedRange(ctx context.Context, start, end time.Time, yield func(model.Booking) error) error {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE created_at >= $1 AND created_at < $2`

	rows, err := s.db.conn.QueryxContext(ctx, q, start.UTC(), end.UTC())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var b model.Booking
		if err := rows.StructScan(&b); err != nil {
			return err
		}
		if err := yield(b); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *EntityStore) IsAlive(ctx context.Context) error {
	return s.db.IsAlive(ctx)
}

func (s *EntityStore) Close() error {
	return s.db.Close()
}

func translate(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", myerrors.ErrNotFound, entity, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s %s conflicts with an existing row (%s)", myerrors.ErrInvalidState, entity, id, pgErr.ConstraintName)
		case pgInvalidText:
			return fmt.Errorf("%w: %s %s", myerrors.ErrNotFound, entity, id)
		case pgCheckViolation:
			return fmt.Errorf("%w: %s", myerrors.ErrValidationFailed, pgErr.Message)
		}
	}
	return fmt.Errorf("%s %s: %w", entity, id, err)
}

package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"fleet-dispatch/internal/admin-service/core/domain/dto"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

var rangeSQL = regexp.QuoteMeta(`SELECT id, service_type, status, price, created_at
FROM bookings
WHERE created_at >= $1 AND created_at < $2
ORDER BY created_at`)

func newMockRepo(t *testing.T) (*BookingsRepo, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return NewBookingsRepo(sqlx.NewDb(mockDB, driverName)), mock
}

func TestQueryBookingsByCreatedRange(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	mock.ExpectQuery(rangeSQL).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id", "service_type", "status", "price", "created_at"}).
			AddRow("b1", "cargo", "completed", 120.5, start.Add(time.Hour)).
			AddRow("b2", "passenger", "pending", 30.0, start.Add(2*time.Hour)))

	var got []dto.BookingRecord
	err := repo.QueryBookingsByCreatedRange(context.Background(), start, end, func(b dto.BookingRecord) error {
		got = append(got, b)
		return nil
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b1" || got[0].Price != 120.5 || got[1].ServiceType != "passenger" {
		t.Errorf("got = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestQueryBookingsStopsOnYieldError(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(rangeSQL).
		WillReturnRows(sqlmock.NewRows([]string{"id", "service_type", "status", "price", "created_at"}).
			AddRow("b1", "cargo", "completed", 1.0, start).
			AddRow("b2", "cargo", "completed", 1.0, start))

	stop := errors.New("stop")
	calls := 0
	err := repo.QueryBookingsByCreatedRange(context.Background(), start, start.Add(time.Hour), func(dto.BookingRecord) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("err = %v calls = %d", err, calls)
	}
}

func TestQueryBookingsQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("relation does not exist")
	mock.ExpectQuery(rangeSQL).WillReturnError(boom)

	err := repo.QueryBookingsByCreatedRange(context.Background(), time.Now(), time.Now().Add(time.Hour), func(dto.BookingRecord) error { return nil })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

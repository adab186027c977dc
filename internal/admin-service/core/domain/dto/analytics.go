package dto

import "time"

// BookingRecord is the slice of a booking the aggregator reads.
type BookingRecord struct {
	ID          string    `db:"id"`
	ServiceType string    `db:"service_type"`
	Status      string    `db:"status"`
	Price       float64   `db:"price"`
	CreatedAt   time.Time `db:"created_at"`
}

type AnalyticsReport struct {
	StartDate            time.Time          `json:"start_date"`
	EndDate              time.Time          `json:"end_date"`
	Summary              Summary            `json:"summary"`
	ByStatus             map[string]int64   `json:"by_status"`
	ByServiceType        map[string]int64   `json:"by_service_type"`
	RevenueByStatus      map[string]float64 `json:"revenue_by_status"`
	RevenueByServiceType map[string]float64 `json:"revenue_by_service_type"`
	DailyRevenueTrend    []DailyRevenue     `json:"daily_revenue_trend"`
	PeakHour             int                `json:"peak_hour"`
	PeakDay              string             `json:"peak_day"`
	HourlyDistribution   [24]int64          `json:"hourly_distribution"`
	// DailyDistribution is indexed Monday first.
	DailyDistribution [7]int64 `json:"daily_distribution"`
}

type Summary struct {
	TotalBookings       int64   `json:"total_bookings"`
	CompletedBookings   int64   `json:"completed_bookings"`
	TotalRevenue        float64 `json:"total_revenue"`
	AverageBookingValue float64 `json:"average_booking_value"`
	CompletionRate      float64 `json:"completion_rate"`
}

type DailyRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

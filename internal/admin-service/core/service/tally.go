package service

import (
	"time"

	"fleet-dispatch/internal/admin-service/core/domain/dto"
)

const (
	statusCompleted = "completed"
	statusCancelled = "cancelled"
	dayLayout       = "2006-01-02"
)

var weekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// tally holds every running counter of one scan. Two tallies over disjoint
// ranges merge into the tally of their union.
type tally struct {
	total     int64
	completed int64

	byStatus       map[string]int64
	byService      map[string]int64
	revenueStatus  map[string]float64
	revenueService map[string]float64
	revenueDay     map[string]float64

	hourly  [24]int64
	weekday [7]int64
}

func newTally() *tally {
	return &tally{
		byStatus:       make(map[string]int64),
		byService:      make(map[string]int64),
		revenueStatus:  make(map[string]float64),
		revenueService: make(map[string]float64),
		revenueDay:     make(map[string]float64),
	}
}

func (t *tally) add(b dto.BookingRecord, excludeCancelled bool) {
	created := b.CreatedAt.UTC()
	price := b.Price
	if excludeCancelled && b.Status == statusCancelled {
		price = 0
	}

	t.total++
	if b.Status == statusCompleted {
		t.completed++
	}
	t.byStatus[b.Status]++
	t.byService[b.ServiceType]++
	t.revenueStatus[b.Status] += price
	t.revenueService[b.ServiceType] += price
	t.revenueDay[created.Format(dayLayout)] += price
	t.hourly[created.Hour()]++
	t.weekday[isoWeekday(created)]++
}

func (t *tally) merge(o *tally) {
	t.total += o.total
	t.completed += o.completed
	for k, v := range o.byStatus {
		t.byStatus[k] += v
	}
	for k, v := range o.byService {
		t.byService[k] += v
	}
	for k, v := range o.revenueStatus {
		t.revenueStatus[k] += v
	}
	for k, v := range o.revenueService {
		t.revenueService[k] += v
	}
	for k, v := range o.revenueDay {
		t.revenueDay[k] += v
	}
	for i := range t.hourly {
		t.hourly[i] += o.hourly[i]
	}
	for i := range t.weekday {
		t.weekday[i] += o.weekday[i]
	}
}

// report derives the totals from the per-day buckets so the trend always sums
// to total_revenue.
func (t *tally) report(start, end time.Time) dto.AnalyticsReport {
	rep := dto.AnalyticsReport{
		StartDate:            start,
		EndDate:              end,
		ByStatus:             t.byStatus,
		ByServiceType:        t.byService,
		RevenueByStatus:      t.revenueStatus,
		RevenueByServiceType: t.revenueService,
		HourlyDistribution:   t.hourly,
		DailyDistribution:    t.weekday,
	}

	var revenue float64
	for _, day := range calendarDays(start, end) {
		key := day.Format(dayLayout)
		rep.DailyRevenueTrend = append(rep.DailyRevenueTrend, dto.DailyRevenue{Date: key, Revenue: t.revenueDay[key]})
		revenue += t.revenueDay[key]
	}

	rep.Summary = dto.Summary{
		TotalBookings:     t.total,
		CompletedBookings: t.completed,
		TotalRevenue:      revenue,
	}
	if t.total > 0 {
		rep.Summary.AverageBookingValue = revenue / float64(t.total)
		rep.Summary.CompletionRate = roundTenth(float64(t.completed) / float64(t.total) * 100)
	}

	rep.PeakHour = argmax(t.hourly[:])
	rep.PeakDay = weekdayNames[argmax(t.weekday[:])]
	return rep
}

// argmax returns the first index holding the largest value.
func argmax(xs []int64) int {
	best := 0
	for i, v := range xs {
		if v > xs[best] {
			best = i
		}
	}
	return best
}

func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func roundTenth(x float64) float64 {
	return float64(int64(x*10+0.5)) / 10
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// calendarDays lists the UTC midnights of every day that intersects [start, end).
func calendarDays(start, end time.Time) []time.Time {
	var days []time.Time
	last := truncateDay(end.Add(-time.Nanosecond))
	for d := truncateDay(start); !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

package service

import (
	"context"
	"fmt"
	"time"

	"fleet-dispatch/internal/admin-service/core/domain/dto"
	"fleet-dispatch/internal/admin-service/core/myerrors"
	"fleet-dispatch/internal/admin-service/core/ports"
	"fleet-dispatch/internal/mylogger"

	"golang.org/x/sync/errgroup"
)

type AggregatorOptions struct {
	// Partitions caps how many day-aligned slices are scanned concurrently.
	Partitions              int
	MaxWindowDays           int
	ExcludeCancelledRevenue bool
}

type AnalyticsAggregator struct {
	mylog  mylogger.Logger
	source ports.IBookingSource
	opts   AggregatorOptions
}

func NewAnalyticsAggregator(mylog mylogger.Logger, source ports.IBookingSource, opts AggregatorOptions) *AnalyticsAggregator {
	if opts.Partitions < 1 {
		opts.Partitions = 1
	}
	return &AnalyticsAggregator{
		mylog:  mylog,
		source: source,
		opts:   opts,
	}
}

// Aggregate scans the bookings created in [start, end) and folds them into a
// report. It only reads.
func (a *AnalyticsAggregator) Aggregate(ctx context.Context, start, end time.Time) (dto.AnalyticsReport, error) {
	start, end = start.UTC(), end.UTC()
	log := a.mylog.Action("aggregate").With("start", start, "end", end)

	if !start.Before(end) {
		return dto.AnalyticsReport{}, fmt.Errorf("%w: start must be before end", myerrors.ErrValidationFailed)
	}
	if a.opts.MaxWindowDays > 0 && end.Sub(start) > time.Duration(a.opts.MaxWindowDays)*24*time.Hour {
		return dto.AnalyticsReport{}, fmt.Errorf("%w: window exceeds %d days", myerrors.ErrValidationFailed, a.opts.MaxWindowDays)
	}

	parts := splitWindow(start, end, a.opts.Partitions)
	tallies := make([]*tally, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range parts {
		g.Go(func() error {
			t := newTally()
			err := a.source.QueryBookingsByCreatedRange(gctx, p.start, p.end, func(b dto.BookingRecord) error {
				created := b.CreatedAt.UTC()
				if created.Before(p.start) || !created.Before(p.end) {
					return nil
				}
				t.add(b, a.opts.ExcludeCancelledRevenue)
				return nil
			})
			if err != nil {
				return fmt.Errorf("scan %s..%s: %w", p.start.Format(time.RFC3339), p.end.Format(time.RFC3339), err)
			}
			tallies[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("aggregation failed", err)
		return dto.AnalyticsReport{}, err
	}

	total := newTally()
	for _, t := range tallies {
		total.merge(t)
	}

	rep := total.report(start, end)
	log.Debug("aggregation done", "bookings", rep.Summary.TotalBookings, "partitions", len(parts))
	return rep, nil
}

type window struct {
	start, end time.Time
}

// splitWindow cuts [start, end) into at most n contiguous pieces whose inner
// boundaries fall on UTC midnights.
func splitWindow(start, end time.Time, n int) []window {
	days := calendarDays(start, end)
	if n > len(days) {
		n = len(days)
	}
	if n <= 1 {
		return []window{{start, end}}
	}

	per := (len(days) + n - 1) / n
	var out []window
	lo := start
	for i := per; i < len(days); i += per {
		cut := days[i]
		out = append(out, window{lo, cut})
		lo = cut
	}
	return append(out, window{lo, end})
}

package handle

import (
	"fmt"
	"net/http"
	"time"

	"fleet-dispatch/internal/admin-service/core/myerrors"
	"fleet-dispatch/internal/admin-service/core/ports"
	"fleet-dispatch/internal/mylogger"
)

const (
	dateLayout    = "2006-01-02"
	defaultWindow = 30
)

type AnalyticsHandler struct {
	analytics ports.IAnalyticsService
	mylog     mylogger.Logger
	now       func() time.Time
}

func NewAnalyticsHandler(mylog mylogger.Logger, analytics ports.IAnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		mylog:     mylog,
		now:       time.Now,
	}
}

// GetAnalytics serves GET /admin/analytics?start_date=&end_date=.
// A date-only end_date covers that whole day.
func (ah *AnalyticsHandler) GetAnalytics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := ah.mylog.Action("get_analytics")

		start, end, err := ah.window(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		report, err := ah.analytics.Aggregate(r.Context(), start, end)
		if err != nil {
			writeError(w, log, err)
			return
		}

		jsonResponse(w, http.StatusOK, report)
	}
}

func (ah *AnalyticsHandler) window(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()

	tomorrow := ah.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	end := tomorrow
	if v := q.Get("end_date"); v != "" {
		t, dateOnly, err := parseBound(v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date: %v", myerrors.ErrValidationFailed, err)
		}
		end = t
		if dateOnly {
			end = t.AddDate(0, 0, 1)
		}
	}

	start := end.AddDate(0, 0, -defaultWindow)
	if v := q.Get("start_date"); v != "" {
		t, _, err := parseBound(v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date: %v", myerrors.ErrValidationFailed, err)
		}
		start = t
	}

	return start, end, nil
}

// parseBound accepts YYYY-MM-DD or RFC3339.
func parseBound(v string) (time.Time, bool, error) {
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected %s or RFC3339, got %q", dateLayout, v)
	}
	return t.UTC(), false, nil
}

package dto

import (
	"time"

	"fleet-dispatch/internal/dispatch-service/core/domain/model"
)

type AssignDriverRequest struct {
	DriverID string `json:"driver_id"`
}

type RecordTimeRequest struct {
	Time time.Time `json:"time"`
}

type DispatchTransitionResult struct {
	Dispatch model.Dispatch `json:"dispatch"`
	// Booking is set only when the coupling rule wrote the booking.
	Booking *model.Booking `json:"booking,omitempty"`
	// Warning carries a non-fatal coupling outcome; the dispatch write stands either way.
	Warning error `json:"-"`
}

type DispatchTransitionResponse struct {
	DispatchTransitionResult
	Warning     string `json:"warning,omitempty"`
	WarningCode string `json:"warning_code,omitempty"`
}

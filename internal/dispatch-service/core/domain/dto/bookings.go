package dto

import (
	"fleet-dispatch/internal/dispatch-service/core/domain/model"
)

// API Transfer data

type CreateBookingRequest struct {
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	ServiceType string   `json:"service_type"`
	Price       *float64 `json:"price"`
	UserID      string   `json:"user_id"`
	TruckID     string   `json:"truck_id"`
}

type TransitionRequest struct {
	TargetStatus string `json:"target_status"`
	FromVersion  int64  `json:"from_version"`
}

type BookingTransitionResult struct {
	Booking model.Booking `json:"booking"`
	// CancelledDispatches lists dispatches closed by a booking cancellation.
	CancelledDispatches []model.Dispatch `json:"cancelled_dispatches,omitempty"`
	Warning             error            `json:"-"`
}

type BookingTransitionResponse struct {
	BookingTransitionResult
	Warning string `json:"warning,omitempty"`
}

package messagebrokerdto

import (
	"strings"
	"time"
)

const (
	EntityBooking  = "booking"
	EntityDispatch = "dispatch"

	CauseRequest  = "request"
	CauseCoupling = "coupling"
	CauseCascade  = "cascade"
)

// Status change → dispatch_topic exchange → {entity}.status.{to_status}
type StatusChanged struct {
	EventID    string    `json:"event_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	BookingID  string    `json:"booking_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Version    int64     `json:"version"`
	Cause      string    `json:"cause"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e StatusChanged) RoutingKey() string {
	return strings.Join([]string{e.EntityType, "status", e.ToStatus}, ".")
}

// Driver status update ← dispatch_topic exchange ← driver.status.{dispatch_id}
type DriverStatusUpdate struct {
	DispatchID string    `json:"dispatch_id"`
	DriverID   string    `json:"driver_id"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

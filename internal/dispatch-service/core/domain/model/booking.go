package model

import "time"

type Booking struct {
	ID          string        `json:"id" db:"id"`
	Source      string        `json:"source" db:"source"`
	Destination string        `json:"destination" db:"destination"`
	ServiceType ServiceType   `json:"service_type" db:"service_type"`
	Price       float64       `json:"price" db:"price"`
	UserID      string        `json:"user_id" db:"user_id"`
	TruckID     string        `json:"truck_id" db:"truck_id"`
	Status      BookingStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
	Version     int64         `json:"version" db:"version"`
}

// BookingUpdate lists the columns a compare-and-swap write sets; nil means untouched.
type BookingUpdate struct {
	Status    *BookingStatus
	UpdatedAt time.Time
}

func (b Booking) Apply(upd BookingUpdate) Booking {
	if upd.Status != nil {
		b.Status = *upd.Status
	}
	b.UpdatedAt = upd.UpdatedAt
	b.Version++
	return b
}

package model

import "time"

type Dispatch struct {
	ID             string         `json:"id" db:"id"`
	BookingID      string         `json:"booking_id" db:"booking_id"`
	AssignedDriver *string        `json:"assigned_driver" db:"assigned_driver"`
	DispatchTime   *time.Time     `json:"dispatch_time" db:"dispatch_time"`
	ArrivalTime    *time.Time     `json:"arrival_time" db:"arrival_time"`
	Status         DispatchStatus `json:"status" db:"status"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
	Version        int64          `json:"version" db:"version"`
}

type DispatchUpdate struct {
	Status         *DispatchStatus
	AssignedDriver *string
	DispatchTime   *time.Time
	ArrivalTime    *time.Time
	UpdatedAt      time.Time
}

// Apply returns a copy of d with the update's fields written and the version bumped.
func (d Dispatch) Apply(upd DispatchUpdate) Dispatch {
	if upd.Status != nil {
		d.Status = *upd.Status
	}
	if upd.AssignedDriver != nil {
		driver := *upd.AssignedDriver
		d.AssignedDriver = &driver
	}
	if upd.DispatchTime != nil {
		t := *upd.DispatchTime
		d.DispatchTime = &t
	}
	if upd.ArrivalTime != nil {
		t := *upd.ArrivalTime
		d.ArrivalTime = &t
	}
	d.UpdatedAt = upd.UpdatedAt
	d.Version++
	return d
}

package main

import "time"

// ANSI color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"
)

// Pacing between simulated driver steps
const (
	StepDelay        = 2 * time.Second
	HTTPRequestDelay = 200 * time.Millisecond
	EventSettleDelay = 500 * time.Millisecond
)

// API paths
const (
	BookingsPath         = "/bookings"
	BookingPath          = "/bookings/%s"
	BookingDispatchPath  = "/bookings/%s/dispatches"
	BookingTransition    = "/bookings/%s/transition"
	DispatchTransition   = "/dispatches/%s/transition"
	DispatchDriverPath   = "/dispatches/%s/driver"
	DispatchTimePath     = "/dispatches/%s/dispatch-time"
	DispatchArrivalPath  = "/dispatches/%s/arrival-time"
	WSEventsPath         = "/ws/events"
	DriverStatusRouteFmt = "driver.status.%s"
)

type Config struct {
	BaseURL     string
	Token       string
	DriverID    string
	ServiceType string
	Price       float64
	// UseBroker publishes driver.status.* messages instead of calling the HTTP transitions.
	UseBroker bool
	AmqpURL   string
	Exchange  string
	Cancel    bool
}

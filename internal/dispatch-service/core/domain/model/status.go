package model

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
)

type DispatchStatus string

const (
	DispatchPending    DispatchStatus = "pending"
	DispatchDispatched DispatchStatus = "dispatched"
	DispatchInTransit  DispatchStatus = "in_transit"
	DispatchArrived    DispatchStatus = "arrived"
	DispatchCompleted  DispatchStatus = "completed"
	DispatchCancelled  DispatchStatus = "cancelled"
)

type ServiceType string

const (
	ServiceCargo     ServiceType = "cargo"
	ServicePassenger ServiceType = "passenger"
	ServicePublic    ServiceType = "public"
)

// Terminal states map to an empty edge set.
var bookingTransitions = map[BookingStatus]map[BookingStatus]bool{
	BookingPending:    {BookingConfirmed: true, BookingCancelled: true},
	BookingConfirmed:  {BookingInProgress: true, BookingCancelled: true},
	BookingInProgress: {BookingCompleted: true, BookingCancelled: true},
	BookingCompleted:  {},
	BookingCancelled:  {},
}

var dispatchTransitions = map[DispatchStatus]map[DispatchStatus]bool{
	DispatchPending:    {DispatchDispatched: true, DispatchCancelled: true},
	DispatchDispatched: {DispatchInTransit: true, DispatchCancelled: true},
	DispatchInTransit:  {DispatchArrived: true, DispatchCancelled: true},
	DispatchArrived:    {DispatchCompleted: true, DispatchCancelled: true},
	DispatchCompleted:  {},
	DispatchCancelled:  {},
}

func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// CanTransition reports whether to is reachable from s through exactly one edge.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	return bookingTransitions[s][to]
}

func (s DispatchStatus) Valid() bool {
	_, ok := dispatchTransitions[s]
	return ok
}

func (s DispatchStatus) Terminal() bool {
	return s == DispatchCompleted || s == DispatchCancelled
}

func (s DispatchStatus) CanTransition(to DispatchStatus) bool {
	return dispatchTransitions[s][to]
}

func (t ServiceType) Valid() bool {
	switch t {
	case ServiceCargo, ServicePassenger, ServicePublic:
		return true
	}
	return false
}

func BookingStatuses() []BookingStatus {
	return []BookingStatus{BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted, BookingCancelled}
}

func DispatchStatuses() []DispatchStatus {
	return []DispatchStatus{DispatchPending, DispatchDispatched, DispatchInTransit, DispatchArrived, DispatchCompleted, DispatchCancelled}
}

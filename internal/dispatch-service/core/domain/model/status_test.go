package model

import "testing"

func TestBookingReachability(t *testing.T) {
	// Walk every path from pending; anything visited must be one of the documented statuses.
	seen := map[BookingStatus]bool{BookingPending: true}
	queue := []BookingStatus{BookingPending}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range BookingStatuses() {
			if cur.CanTransition(next) && !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	for _, s := range BookingStatuses() {
		if !seen[s] {
			t.Errorf("status %q unreachable from pending", s)
		}
	}
	if len(seen) != len(BookingStatuses()) {
		t.Errorf("reached %d statuses, want %d", len(seen), len(BookingStatuses()))
	}
}

func TestBookingEdges(t *testing.T) {
	tests := []struct {
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingInProgress, false},
		{BookingPending, BookingCompleted, false},
		{BookingPending, BookingCancelled, true},
		{BookingConfirmed, BookingInProgress, true},
		{BookingConfirmed, BookingCompleted, false},
		{BookingConfirmed, BookingPending, false},
		{BookingInProgress, BookingCompleted, true},
		{BookingInProgress, BookingCancelled, true},
		{BookingInProgress, BookingConfirmed, false},
		{BookingConfirmed, BookingConfirmed, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminalStatusesHaveNoEdges(t *testing.T) {
	for _, from := range []BookingStatus{BookingCompleted, BookingCancelled} {
		if !from.Terminal() {
			t.Errorf("%s should be terminal", from)
		}
		for _, to := range BookingStatuses() {
			if from.CanTransition(to) {
				t.Errorf("terminal booking %s -> %s allowed", from, to)
			}
		}
	}
	for _, from := range []DispatchStatus{DispatchCompleted, DispatchCancelled} {
		if !from.Terminal() {
			t.Errorf("%s should be terminal", from)
		}
		for _, to := range DispatchStatuses() {
			if from.CanTransition(to) {
				t.Errorf("terminal dispatch %s -> %s allowed", from, to)
			}
		}
	}
}

func TestDispatchChain(t *testing.T) {
	chain := []DispatchStatus{DispatchPending, DispatchDispatched, DispatchInTransit, DispatchArrived, DispatchCompleted}
	for i := 0; i+1 < len(chain); i++ {
		if !chain[i].CanTransition(chain[i+1]) {
			t.Errorf("%s -> %s should be allowed", chain[i], chain[i+1])
		}
		if i+2 < len(chain) && chain[i].CanTransition(chain[i+2]) {
			t.Errorf("%s -> %s skips a step", chain[i], chain[i+2])
		}
		if !chain[i].CanTransition(DispatchCancelled) {
			t.Errorf("%s -> cancelled should be allowed", chain[i])
		}
	}
	if DispatchStatus("lost").Valid() {
		t.Errorf("unknown status reported valid")
	}
}

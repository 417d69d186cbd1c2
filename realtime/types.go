package realtime

import "time"

// Relationship is the schedule relationship of a stop update.
type Relationship int

const (
	Scheduled Relationship = iota
	Skipped
	Canceled
	NoData
)

func (r Relationship) String() string {
	switch r {
	case Scheduled:
		return "scheduled"
	case Skipped:
		return "skipped"
	case Canceled:
		return "canceled"
	case NoData:
		return "no_data"
	default:
		return "unknown"
	}
}

// Cancels reports whether the stop will not be served.
func (r Relationship) Cancels() bool {
	return r == Skipped || r == Canceled
}

// StopTimeEvent is a predicted arrival or departure.
type StopTimeEvent struct {
	// Delay is the delay in seconds, valid when HasDelay.
	Delay int32
	// Time is the absolute POSIX time, valid when HasTime.
	Time     int64
	HasDelay bool
	HasTime  bool
}

// StopUpdate is the realtime state of one stop of a trip.
type StopUpdate struct {
	StopID       string
	StopSequence uint32
	Arrival      StopTimeEvent
	Departure    StopTimeEvent
	Relationship Relationship
}

// DelaySeconds returns the departure delay, else the arrival delay, else 0.
func (s StopUpdate) DelaySeconds() (int32, bool) {
	switch {
	case s.Departure.HasDelay:
		return s.Departure.Delay, true
	case s.Arrival.HasDelay:
		return s.Arrival.Delay, true
	}
	return 0, false
}

// TripUpdate is the realtime state of one trip.
type TripUpdate struct {
	TripID    string
	RouteID   string
	StartDate string
	StartTime string
	// Canceled is set when the whole trip is canceled.
	Canceled    bool
	StopUpdates []StopUpdate
}

// ActivePeriod is a time range during which an alert applies. Zero bounds
// are open.
type ActivePeriod struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// Alert is a service alert.
type Alert struct {
	ID          string         `json:"id"`
	Header      string         `json:"header"`
	Description string         `json:"description,omitempty"`
	Cause       string         `json:"cause,omitempty"`
	Effect      string         `json:"effect,omitempty"`
	Periods     []ActivePeriod `json:"active_periods,omitempty"`
	RouteIDs    []string       `json:"route_ids,omitempty"`
	StopIDs     []string       `json:"stop_ids,omitempty"`
	TripIDs     []string       `json:"trip_ids,omitempty"`
}

// ActiveAt reports whether the alert applies at t. An alert without
// periods is always active.
func (a Alert) ActiveAt(t time.Time) bool {
	if len(a.Periods) == 0 {
		return true
	}
	for _, p := range a.Periods {
		if (p.Start.IsZero() || !t.Before(p.Start)) && (p.End.IsZero() || !t.After(p.End)) {
			return true
		}
	}
	return false
}

// Feed is a decoded feed message.
type Feed struct {
	// Timestamp is the header timestamp, zero when absent.
	Timestamp   time.Time
	TripUpdates []TripUpdate
	Alerts      []Alert
}

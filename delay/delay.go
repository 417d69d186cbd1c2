package delay

import (
	"math"

	"github.com/NathanNam/caltrain-commuter-app/errors"
	"github.com/NathanNam/caltrain-commuter-app/realtime"
)

// Status is the live status of a trip.
type Status string

const (
	OnTime    Status = "on_time"
	Delayed   Status = "delayed"
	Cancelled Status = "cancelled"
)

// TripStatus is the reconciled status of one trip.
type TripStatus struct {
	TripID       string `json:"trip_id"`
	DelayMinutes int    `json:"delay_minutes"`
	Status       Status `json:"status"`
}

// Minutes converts seconds to whole minutes.
func Minutes(seconds int64) int {
	return int(math.Round(float64(seconds) / 60))
}

func classify(tripID string, seconds int64) TripStatus {
	m := Minutes(seconds)
	s := OnTime
	if m >= 1 || m <= -1 {
		s = Delayed
	}
	return TripStatus{TripID: tripID, DelayMinutes: m, Status: s}
}

func cancelled(tripID string) TripStatus {
	return TripStatus{TripID: tripID, Status: Cancelled}
}

// StopDelay returns the status of tripID at stopID. ok is false when the
// trip or stop is not in updates.
func StopDelay(updates []realtime.TripUpdate, tripID, stopID string) (TripStatus, bool, error) {
	if tripID == "" {
		return TripStatus{}, false, errors.Validation("trip id is required").WithDetail("stop_id", stopID)
	}
	for _, tu := range updates {
		if tu.TripID != tripID {
			continue
		}
		st, ok := stopStatus(tu, stopID)
		return st, ok, nil
	}
	return TripStatus{}, false, nil
}

// AnyTripStopDelay returns the status at stopID of the first trip in
// updates that serves it. It ignores trip identity, so with several trains
// sharing a stop it may report the wrong one.
func AnyTripStopDelay(updates []realtime.TripUpdate, stopID string) (TripStatus, bool) {
	for _, tu := range updates {
		if st, ok := stopStatus(tu, stopID); ok {
			return st, true
		}
	}
	return TripStatus{}, false
}

func stopStatus(tu realtime.TripUpdate, stopID string) (TripStatus, bool) {
	for _, su := range tu.StopUpdates {
		if su.StopID != stopID {
			continue
		}
		if su.Relationship.Cancels() {
			return cancelled(tu.TripID), true
		}
		d, _ := su.DelaySeconds()
		return classify(tu.TripID, int64(d)), true
	}
	return TripStatus{}, false
}

// TripDelay returns the status of tripID. A skipped or canceled stop makes
// the trip Cancelled; otherwise the delay is the largest in magnitude
// across its stops. ok is false when the trip is missing or has no stop
// updates.
func TripDelay(updates []realtime.TripUpdate, tripID string) (TripStatus, bool) {
	for _, tu := range updates {
		if tu.TripID == tripID {
			return tripStatus(tu, nil)
		}
	}
	return TripStatus{}, false
}

// tripStatus scans tu. delayOf, when set, supplies the delay of stops
// without a delay field.
func tripStatus(tu realtime.TripUpdate, delayOf func(realtime.StopUpdate) (int64, bool)) (TripStatus, bool) {
	if tu.Canceled {
		return cancelled(tu.TripID), true
	}
	if len(tu.StopUpdates) == 0 {
		return TripStatus{}, false
	}

	var worst int64
	for _, su := range tu.StopUpdates {
		if su.Relationship.Cancels() {
			return cancelled(tu.TripID), true
		}
		d, ok := su.DelaySeconds()
		sec := int64(d)
		if !ok && delayOf != nil {
			sec, _ = delayOf(su)
		}
		if abs(sec) > abs(worst) {
			worst = sec
		}
	}
	return classify(tu.TripID, worst), true
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

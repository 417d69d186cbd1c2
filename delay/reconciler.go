package delay

import (
	"context"
	"fmt"
	"time"

	"github.com/NathanNam/caltrain-commuter-app/logger"
	"github.com/NathanNam/caltrain-commuter-app/realtime"
	"github.com/NathanNam/caltrain-commuter-app/schedule"
)

// Reconciler matches realtime updates against the schedule.
type Reconciler struct {
	lookup schedule.Lookup
	log    *logger.Logger
}

// NewReconciler creates a reconciler reading scheduled trips from lookup.
func NewReconciler(lookup schedule.Lookup, log *logger.Logger) *Reconciler {
	return &Reconciler{
		lookup: lookup,
		log:    logger.OrComponent(log, "delay"),
	}
}

// Reconcile returns one status per scheduled trip of serviceID that has a
// usable update, in schedule order. An update matches a trip by trip id,
// and by start date when the update carries one. Stops are resolved by
// stop sequence, then stop id. Stops without a delay field take their
// delay from the predicted time against the scheduled time on serviceDate.
func (r *Reconciler) Reconcile(ctx context.Context, serviceID string, serviceDate time.Time, updates []realtime.TripUpdate) ([]TripStatus, error) {
	trips, err := r.lookup.TripsForService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("load trips for service %s: %w", serviceID, err)
	}

	byTrip := make(map[string][]realtime.TripUpdate, len(updates))
	for _, tu := range updates {
		byTrip[tu.TripID] = append(byTrip[tu.TripID], tu)
	}
	date := serviceDate.Format("20060102")

	out := make([]TripStatus, 0, len(trips))
	unmatched := 0
	for _, trip := range trips {
		tu, ok := match(byTrip[trip.TripID], date)
		if !ok {
			unmatched++
			continue
		}
		st, ok := tripStatus(tu, scheduledDelay(trip, serviceDate))
		if !ok {
			continue
		}
		out = append(out, st)
	}

	r.log.WithContext(ctx).Debug("reconciled", logger.Fields(
		"service_id", serviceID,
		"trips", len(trips),
		"matched", len(out),
		"unmatched", unmatched,
	))
	return out, nil
}

func match(candidates []realtime.TripUpdate, date string) (realtime.TripUpdate, bool) {
	for _, tu := range candidates {
		if tu.StartDate == "" || tu.StartDate == date {
			return tu, true
		}
	}
	return realtime.TripUpdate{}, false
}

// scheduledDelay derives a stop's delay in seconds from its predicted
// absolute time.
func scheduledDelay(trip schedule.Trip, serviceDate time.Time) func(realtime.StopUpdate) (int64, bool) {
	return func(su realtime.StopUpdate) (int64, bool) {
		st, ok := resolveStop(trip, su)
		if !ok {
			return 0, false
		}
		switch {
		case su.Departure.HasTime:
			return su.Departure.Time - st.Departure.On(serviceDate).Unix(), true
		case su.Arrival.HasTime:
			return su.Arrival.Time - st.Arrival.On(serviceDate).Unix(), true
		}
		return 0, false
	}
}

func resolveStop(trip schedule.Trip, su realtime.StopUpdate) (schedule.StopTime, bool) {
	if su.StopSequence > 0 {
		for _, st := range trip.Stops {
			if st.StopSequence == su.StopSequence {
				return st, true
			}
		}
	}
	if su.StopID != "" {
		for _, st := range trip.Stops {
			if st.StopID == su.StopID {
				return st, true
			}
		}
	}
	return schedule.StopTime{}, false
}

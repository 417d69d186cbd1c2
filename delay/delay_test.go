package delay

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/NathanNam/caltrain-commuter-app/errors"
	"github.com/NathanNam/caltrain-commuter-app/logger"
	"github.com/NathanNam/caltrain-commuter-app/realtime"
	"github.com/NathanNam/caltrain-commuter-app/schedule"
)

func stopWithDelay(stopID string, seq uint32, departure int32) realtime.StopUpdate {
	return realtime.StopUpdate{
		StopID:       stopID,
		StopSequence: seq,
		Departure:    realtime.StopTimeEvent{Delay: departure, HasDelay: true},
	}
}

func TestMinutes(t *testing.T) {
	tests := []struct {
		seconds int64
		want    int
	}{
		{0, 0}, {29, 0}, {30, 1}, {89, 1}, {90, 2}, {-30, -1}, {-29, 0}, {-90, -2}, {300, 5},
	}
	for _, tt := range tests {
		if got := Minutes(tt.seconds); got != tt.want {
			t.Errorf("Minutes(%d) = %d, want %d", tt.seconds, got, tt.want)
		}
	}
}

func TestTripDelay_MaxMagnitude(t *testing.T) {
	updates := []realtime.TripUpdate{{
		TripID: "101",
		StopUpdates: []realtime.StopUpdate{
			stopWithDelay("a", 1, 0),
			stopWithDelay("b", 2, 300),
			stopWithDelay("c", 3, -60),
		},
	}}
	got, ok := TripDelay(updates, "101")
	if !ok {
		t.Fatal("trip not found")
	}
	if got.DelayMinutes != 5 || got.Status != Delayed {
		t.Errorf("got %+v, want 5 min delayed", got)
	}
}

func TestTripDelay_NegativeDominates(t *testing.T) {
	updates := []realtime.TripUpdate{{
		TripID:      "101",
		StopUpdates: []realtime.StopUpdate{stopWithDelay("a", 1, 60), stopWithDelay("b", 2, -180)},
	}}
	got, _ := TripDelay(updates, "101")
	if got.DelayMinutes != -3 || got.Status != Delayed {
		t.Errorf("got %+v", got)
	}
}

func TestTripDelay_SkippedCancels(t *testing.T) {
	skipped := realtime.StopUpdate{StopID: "b", StopSequence: 2, Relationship: realtime.Skipped}
	updates := []realtime.TripUpdate{{
		TripID:      "101",
		StopUpdates: []realtime.StopUpdate{stopWithDelay("a", 1, 600), skipped, stopWithDelay("c", 3, 900)},
	}}
	got, ok := TripDelay(updates, "101")
	if !ok || got.Status != Cancelled || got.DelayMinutes != 0 {
		t.Errorf("got %+v, %v", got, ok)
	}
}

func TestTripDelay_Unknown(t *testing.T) {
	updates := []realtime.TripUpdate{{TripID: "101"}}
	if _, ok := TripDelay(updates, "101"); ok {
		t.Error("empty stop list should be unknown")
	}
	if _, ok := TripDelay(updates, "999"); ok {
		t.Error("missing trip should be unknown")
	}
	canceled := []realtime.TripUpdate{{TripID: "7", Canceled: true}}
	if got, ok := TripDelay(canceled, "7"); !ok || got.Status != Cancelled {
		t.Errorf("canceled trip = %+v, %v", got, ok)
	}
}

func TestTripDelay_OnTime(t *testing.T) {
	updates := []realtime.TripUpdate{{
		TripID:      "101",
		StopUpdates: []realtime.StopUpdate{stopWithDelay("a", 1, 20), {StopID: "b"}},
	}}
	got, _ := TripDelay(updates, "101")
	if got.Status != OnTime || got.DelayMinutes != 0 {
		t.Errorf("got %+v", got)
	}
}

func TestStopDelay(t *testing.T) {
	arrivalOnly := realtime.StopUpdate{StopID: "b", Arrival: realtime.StopTimeEvent{Delay: 120, HasDelay: true}}
	both := realtime.StopUpdate{
		StopID:    "c",
		Arrival:   realtime.StopTimeEvent{Delay: 600, HasDelay: true},
		Departure: realtime.StopTimeEvent{Delay: 240, HasDelay: true},
	}
	updates := []realtime.TripUpdate{
		{TripID: "101", StopUpdates: []realtime.StopUpdate{stopWithDelay("a", 1, 0), arrivalOnly, both,
			{StopID: "d", Relationship: realtime.Canceled}}},
		{TripID: "103", StopUpdates: []realtime.StopUpdate{stopWithDelay("a", 1, 420)}},
	}

	tests := []struct {
		name   string
		tripID string
		stopID string
		want   TripStatus
		wantOK bool
	}{
		{"on time", "101", "a", TripStatus{TripID: "101", Status: OnTime}, true},
		{"arrival fallback", "101", "b", TripStatus{TripID: "101", DelayMinutes: 2, Status: Delayed}, true},
		{"departure preferred", "101", "c", TripStatus{TripID: "101", DelayMinutes: 4, Status: Delayed}, true},
		{"canceled stop", "101", "d", TripStatus{TripID: "101", Status: Cancelled}, true},
		{"other trip", "103", "a", TripStatus{TripID: "103", DelayMinutes: 7, Status: Delayed}, true},
		{"missing stop", "101", "z", TripStatus{}, false},
		{"missing trip", "999", "a", TripStatus{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := StopDelay(updates, tt.tripID, tt.stopID)
			if err != nil {
				t.Fatalf("StopDelay: %v", err)
			}
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("got %+v, %v; want %+v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStopDelay_RequiresTripID(t *testing.T) {
	_, ok, err := StopDelay(nil, "", "a")
	if ok || !errors.IsValidation(err) {
		t.Errorf("got ok=%v err=%v, want validation error", ok, err)
	}
}

func TestAnyTripStopDelay(t *testing.T) {
	updates := []realtime.TripUpdate{
		{TripID: "101", StopUpdates: []realtime.StopUpdate{stopWithDelay("a", 1, 0)}},
		{TripID: "103", StopUpdates: []realtime.StopUpdate{stopWithDelay("b", 1, 180)}},
	}
	got, ok := AnyTripStopDelay(updates, "b")
	if !ok || got.TripID != "103" || got.DelayMinutes != 3 {
		t.Errorf("got %+v, %v", got, ok)
	}
	if _, ok := AnyTripStopDelay(updates, "z"); ok {
		t.Error("missing stop should be unknown")
	}
}

type failingLookup struct{}

func (failingLookup) TripsForService(context.Context, string) ([]schedule.Trip, error) {
	return nil, stderrors.New("schedule unavailable")
}

func TestReconcile(t *testing.T) {
	offset := func(s string) schedule.Offset {
		o, err := schedule.ParseOffset(s)
		if err != nil {
			t.Fatalf("ParseOffset(%q): %v", s, err)
		}
		return o
	}
	lookup := schedule.NewMemory(
		schedule.Trip{TripID: "101", ServiceID: "weekday", Stops: []schedule.StopTime{
			{StopID: "sf", StopSequence: 1, Arrival: offset("07:00:00"), Departure: offset("07:00:00")},
			{StopID: "mv", StopSequence: 2, Arrival: offset("07:40:00"), Departure: offset("07:41:00")},
		}},
		schedule.Trip{TripID: "103", ServiceID: "weekday"},
		schedule.Trip{TripID: "105", ServiceID: "weekday"},
		schedule.Trip{TripID: "107", ServiceID: "weekday"},
		schedule.Trip{TripID: "900", ServiceID: "weekend"},
	)

	loc := time.FixedZone("PST", -8*3600)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	mvDeparture := time.Date(2026, 3, 2, 7, 41, 0, 0, loc)

	updates := []realtime.TripUpdate{
		{TripID: "107", StartDate: "20260302", StopUpdates: []realtime.StopUpdate{stopWithDelay("sf", 1, 60)}},
		{TripID: "101", StartDate: "20260302", StopUpdates: []realtime.StopUpdate{
			{StopID: "sf", StopSequence: 1, Departure: realtime.StopTimeEvent{Delay: 0, HasDelay: true}},
			// No delay field: 8 minutes late by absolute time, matched by sequence.
			{StopID: "ignored", StopSequence: 2, Departure: realtime.StopTimeEvent{Time: mvDeparture.Add(8 * time.Minute).Unix(), HasTime: true}},
		}},
		{TripID: "103", StartDate: "20260301", StopUpdates: []realtime.StopUpdate{stopWithDelay("sf", 1, 600)}},
		{TripID: "105", Canceled: true},
		{TripID: "900", StopUpdates: []realtime.StopUpdate{stopWithDelay("x", 1, 60)}},
	}

	r := NewReconciler(lookup, logger.Nop())
	got, err := r.Reconcile(context.Background(), "weekday", day, updates)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	want := []TripStatus{
		{TripID: "101", DelayMinutes: 8, Status: Delayed},
		{TripID: "105", Status: Cancelled},
		{TripID: "107", DelayMinutes: 1, Status: Delayed},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("status %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReconcile_ArrivalTimeByStopID(t *testing.T) {
	arr, _ := schedule.ParseOffset("08:00:00")
	lookup := schedule.NewMemory(schedule.Trip{TripID: "1", ServiceID: "s", Stops: []schedule.StopTime{
		{StopID: "sj", Arrival: arr, Departure: arr},
	}})
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	early := time.Date(2026, 3, 2, 7, 58, 0, 0, time.UTC)
	updates := []realtime.TripUpdate{{TripID: "1", StopUpdates: []realtime.StopUpdate{
		{StopID: "sj", Arrival: realtime.StopTimeEvent{Time: early.Unix(), HasTime: true}},
	}}}

	got, err := NewReconciler(lookup, nil).Reconcile(context.Background(), "s", day, updates)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(got) != 1 || got[0].DelayMinutes != -2 || got[0].Status != Delayed {
		t.Errorf("got %+v", got)
	}
}

func TestReconcile_LookupError(t *testing.T) {
	_, err := NewReconciler(failingLookup{}, logger.Nop()).Reconcile(context.Background(), "s", time.Now(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

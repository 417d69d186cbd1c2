// Package schedule provides the read-only scheduled-trip lookup used by
// delay reconciliation.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Offset is a time of day measured from service-day midnight. It may exceed
// 24h for trips running past midnight.
type Offset time.Duration

// ParseOffset parses "HH:MM:SS" (hours may exceed 23) or "HH:MM".
func ParseOffset(s string) (Offset, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		fields[i] = n
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	d := time.Duration(fields[0])*time.Hour + time.Duration(fields[1])*time.Minute + time.Duration(fields[2])*time.Second
	return Offset(d), nil
}

// Duration returns the offset as a time.Duration.
func (o Offset) Duration() time.Duration { return time.Duration(o) }

// On returns the absolute time of the offset on the service day date.
// Offsets count from noon minus 12h, as GTFS defines service time.
func (o Offset) On(date time.Time) time.Time {
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, date.Location())
	return noon.Add(-12 * time.Hour).Add(time.Duration(o))
}

func (o Offset) String() string {
	d := time.Duration(o)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Offset) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseOffset(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*o = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (o Offset) MarshalYAML() (any, error) {
	return o.String(), nil
}

// StopTime is one scheduled stop of a trip.
type StopTime struct {
	StopID       string `yaml:"stop_id" json:"stop_id" validate:"required"`
	StopSequence uint32 `yaml:"stop_sequence" json:"stop_sequence"`
	Arrival      Offset `yaml:"arrival" json:"arrival"`
	Departure    Offset `yaml:"departure" json:"departure"`
}

// Trip is one scheduled run of a train.
type Trip struct {
	TripID    string     `yaml:"trip_id" json:"trip_id" validate:"required"`
	RouteID   string     `yaml:"route_id" json:"route_id"`
	ServiceID string     `yaml:"service_id" json:"service_id" validate:"required"`
	Stops     []StopTime `yaml:"stops" json:"stops" validate:"dive"`
}

// Lookup returns the scheduled trips of a service, in schedule order.
type Lookup interface {
	TripsForService(ctx context.Context, serviceID string) ([]Trip, error)
}

// Memory is an in-memory Lookup.
type Memory struct {
	mu       sync.RWMutex
	services map[string][]Trip
	trips    map[string]Trip
}

// NewMemory creates a lookup holding trips.
func NewMemory(trips ...Trip) *Memory {
	m := &Memory{
		services: make(map[string][]Trip),
		trips:    make(map[string]Trip),
	}
	for _, t := range trips {
		m.Add(t)
	}
	return m
}

// Add stores a trip, replacing any trip with the same id. Stops are
// ordered by stop sequence.
func (m *Memory) Add(t Trip) {
	stops := append([]StopTime(nil), t.Stops...)
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].StopSequence < stops[j].StopSequence })
	t.Stops = stops

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.trips[t.TripID]; ok {
		m.services[old.ServiceID] = removeTrip(m.services[old.ServiceID], t.TripID)
	}
	m.trips[t.TripID] = t
	m.services[t.ServiceID] = append(m.services[t.ServiceID], t)
}

// TripsForService implements Lookup. Unknown services have no trips.
func (m *Memory) TripsForService(_ context.Context, serviceID string) ([]Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Trip(nil), m.services[serviceID]...), nil
}

// Trip returns the trip with the given id.
func (m *Memory) Trip(tripID string) (Trip, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[tripID]
	return t, ok
}

// Services returns the known service ids, sorted.
func (m *Memory) Services() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.services))
	for id, trips := range m.services {
		if len(trips) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func removeTrip(trips []Trip, tripID string) []Trip {
	out := trips[:0]
	for _, t := range trips {
		if t.TripID != tripID {
			out = append(out, t)
		}
	}
	return out
}

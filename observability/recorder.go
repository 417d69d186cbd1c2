package observability

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Event is a LogEvent call captured by Recorder.
type Event struct {
	Severity string
	Message  string
	Attrs    map[string]any
}

// Recorder is an in-memory Sink for tests.
type Recorder struct {
	mu       sync.Mutex
	counters map[string]int64
	samples  map[string][]float64
	events   []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		counters: make(map[string]int64),
		samples:  make(map[string][]float64),
	}
}

func (r *Recorder) Add(_ context.Context, name string, n int64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[seriesKey(name, labels)] += n
}

func (r *Recorder) Record(_ context.Context, name string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := seriesKey(name, labels)
	r.samples[key] = append(r.samples[key], value)
}

func (r *Recorder) LogEvent(_ context.Context, severity, msg string, attrs map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Severity: severity, Message: msg, Attrs: attrs})
}

// Count returns the counter value for name with exactly labels.
func (r *Recorder) Count(name string, labels map[string]string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[seriesKey(name, labels)]
}

// Total returns the sum of name across all label sets.
func (r *Recorder) Total(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for k, v := range r.counters {
		if k == name || strings.HasPrefix(k, name+"{") {
			total += v
		}
	}
	return total
}

// Samples returns the measurements for name with exactly labels.
func (r *Recorder) Samples(name string, labels map[string]string) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.samples[seriesKey(name, labels)]...)
}

// SampleCount returns the number of measurements for name across all label sets.
func (r *Recorder) SampleCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, v := range r.samples {
		if k == name || strings.HasPrefix(k, name+"{") {
			n += len(v)
		}
	}
	return n
}

// Events returns the captured events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}

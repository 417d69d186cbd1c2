package resilience

import (
	"sort"
	"sync"
)

// Registry holds one circuit breaker per upstream name for the lifetime of
// the process.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	onEvent  func(name, event string)
}

// NewRegistry creates an empty registry. onEvent, if non-nil, is installed
// on breakers whose config has no OnEvent of its own.
func NewRegistry(onEvent func(name, event string)) *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		onEvent:  onEvent,
	}
}

// Get returns the breaker for name, creating it from cfg on first use.
// cfg is ignored once the breaker exists.
func (r *Registry) Get(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	cfg.Name = name
	if cfg.OnEvent == nil {
		cfg.OnEvent = r.onEvent
	}
	cb := NewCircuitBreaker(cfg)
	r.breakers[name] = cb
	return cb
}

// Lookup returns the breaker for name if one has been created.
func (r *Registry) Lookup(name string) (*CircuitBreaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[name]
	return cb, ok
}

// Snapshots returns the state of every breaker, sorted by name.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	list := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		list = append(list, cb)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(list))
	for _, cb := range list {
		out = append(out, cb.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

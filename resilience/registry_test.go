package resilience

import (
	"sync"
	"testing"
)

func TestRegistry_GetCreatesOnce(t *testing.T) {
	r := NewRegistry(nil)
	cfg := DefaultCircuitBreakerConfig("")
	cfg.FailureThreshold = 2

	a := r.Get("weather", cfg)
	other := DefaultCircuitBreakerConfig("")
	other.FailureThreshold = 100
	b := r.Get("weather", other)
	if a != b {
		t.Fatal("expected the same breaker for the same name")
	}

	_ = fail(a)
	_ = fail(a)
	if a.State() != StateOpen {
		t.Errorf("expected config of the first call to apply, got %s", a.State())
	}
	if a.Name() != "weather" {
		t.Errorf("expected name from registry key, got %q", a.Name())
	}
}

func TestRegistry_IsolatesUpstreams(t *testing.T) {
	r := NewRegistry(nil)
	cfg := DefaultCircuitBreakerConfig("")
	cfg.FailureThreshold = 1
	_ = fail(r.Get("a", cfg))
	if r.Get("b", cfg).State() != StateClosed {
		t.Error("expected breaker b unaffected by a")
	}
}

func TestRegistry_DefaultOnEvent(t *testing.T) {
	var mu sync.Mutex
	var got []string
	r := NewRegistry(func(name, event string) {
		mu.Lock()
		got = append(got, name+":"+event)
		mu.Unlock()
	})
	cfg := DefaultCircuitBreakerConfig("")
	cfg.FailureThreshold = 1
	_ = fail(r.Get("trains", cfg))
	if len(got) != 1 || got[0] != "trains:opened" {
		t.Errorf("unexpected events %v", got)
	}
}

func TestRegistry_ConcurrentGet(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup
	results := make([]*CircuitBreaker, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Get("shared", DefaultCircuitBreakerConfig(""))
		}(i)
	}
	wg.Wait()
	for _, cb := range results {
		if cb != results[0] {
			t.Fatal("expected a single breaker instance")
		}
	}
}

func TestRegistry_LookupAndSnapshots(t *testing.T) {
	r := NewRegistry(nil)
	if _, ok := r.Lookup("missing"); ok {
		t.Error("expected no breaker before first Get")
	}
	r.Get("b", DefaultCircuitBreakerConfig(""))
	r.Get("a", DefaultCircuitBreakerConfig(""))
	snaps := r.Snapshots()
	if len(snaps) != 2 || snaps[0].Name != "a" || snaps[1].Name != "b" {
		t.Errorf("unexpected snapshots %+v", snaps)
	}
	if snaps[0].State != "closed" {
		t.Errorf("expected closed, got %q", snaps[0].State)
	}
}

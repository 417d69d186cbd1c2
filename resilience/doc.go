// Package resilience provides the fault-tolerance primitives of the fetch
// pipeline.
//
// This package includes:
//   - Retry: retries transient failures with exponential backoff and jitter
//   - CircuitBreaker: fails fast while an upstream is unhealthy
//   - Registry: one lazily created breaker per upstream name
//   - Bulkhead: bounds concurrent work such as background cache refreshes
//
// Retry wraps the breaker, so every attempt is checked against the
// upstream's breaker and a rejection ends the retry loop:
//
//	cb := registry.Get("weather", resilience.DefaultCircuitBreakerConfig("weather"))
//	body, err := resilience.Retry(ctx, resilience.DefaultRetryPolicy(), func() ([]byte, error) {
//	    return resilience.ExecuteValue(cb, func() ([]byte, error) {
//	        return client.Get(ctx, url)
//	    })
//	})
package resilience

// Package fetch composes the resilience primitives into a single call.
//
// A top-level Get runs through these layers, outermost first:
//
//	cache (when Options.CacheKey is set)
//	  retry
//	    circuit breaker (one per upstream)
//	      transport
//	        parser
//
// A parse failure counts against the breaker and is never retried. Each
// top-level call records one fetch.duration sample and one fetch.outcome
// count. Retries and breaker transitions are reported as they happen.
//
// Basic usage:
//
//	o := fetch.New(client, fetch.Config{}, fetch.WithSink(sink))
//	defer o.Close(ctx)
//
//	forecast, err := fetch.Get(ctx, o, url, fetch.Options[Forecast]{
//	    Upstream: "weather",
//	    CacheKey: "forecast:sfo",
//	    Validate: true,
//	})
package fetch

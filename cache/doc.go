// Package cache implements an in-memory stale-while-revalidate cache with
// LRU eviction.
//
// Each entry has a TTL and a stale window. Within the TTL a read is a fresh
// hit. Within the stale window the stored value is returned at once and a
// single background refresh is started for the key. Past both, the read
// blocks on the loader. Concurrent misses for one key share a single loader
// call.
//
// Background refreshes are detached from the caller's context, bounded by
// Config.RefreshTimeout and by a bulkhead of Config.MaxConcurrentRefreshes
// slots. Close waits for them to finish.
package cache

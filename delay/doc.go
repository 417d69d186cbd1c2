// Package delay turns realtime trip updates into per-trip status.
//
// StopDelay and TripDelay work on decoded updates alone. Reconciler matches
// updates against the scheduled trips of a service day and can derive delay
// from predicted absolute times when a feed omits delay fields.
//
// Delays are reported in whole minutes, rounded half away from zero. Any
// skipped or canceled stop makes the trip Cancelled.
package delay

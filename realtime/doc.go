// Package realtime decodes GTFS-Realtime feeds into plain Go values.
//
// Decode returns the trip updates of a feed; DecodeFeed also returns the
// header timestamp and service alerts. Optional protobuf fields are
// normalized to zero values, with HasDelay and HasTime recording presence
// on stop time events. A malformed buffer yields an errors.ErrCodeParse
// error, which is distinct from a well-formed feed with no entities.
package realtime

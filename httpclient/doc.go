// Package httpclient is the transport used by the fetch pipeline.
//
// A Client sends one request per Do call, bounded by Config.Timeout, and
// reports failures in the shared error taxonomy:
//
//   - connection resets and premature EOF as errors.ErrCodeConnectionReset
//   - refused connections as errors.ErrCodeConnectionRefused
//   - DNS failures as errors.ErrCodeHostNotFound
//   - attempt deadlines as errors.ErrCodeTimeout
//   - caller cancellation as errors.ErrCodeCanceled
//   - non-2xx answers as errors.ErrCodeHTTPStatus, with the Response still returned
//
// Retrying and circuit breaking are layered on top by the caller.
package httpclient

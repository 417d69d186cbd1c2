package errors

import (
	stderrors "errors"
)

// ErrorResponse is the JSON structure returned to clients following RFC 7807.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details sent to clients.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:      e.Code,
			Message:   e.Message,
			Retryable: e.Retryable,
			Details:   e.Details,
		},
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost AppError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// StatusCodeOf returns the upstream HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.StatusCode
	}
	return 0
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsCircuitOpen reports whether err is a breaker rejection.
func IsCircuitOpen(err error) bool { return HasCode(err, ErrCodeCircuitOpen) }

// IsParse reports whether err is a malformed-payload error.
func IsParse(err error) bool { return HasCode(err, ErrCodeParse) }

// IsValidation reports whether err is a shape mismatch.
func IsValidation(err error) bool { return HasCode(err, ErrCodeValidation) }

// IsTimeout reports whether err is a timed-out attempt.
func IsTimeout(err error) bool { return HasCode(err, ErrCodeTimeout) }

// IsTransport reports whether err is a connection-level failure.
func IsTransport(err error) bool { return IsTransportCode(CodeOf(err)) }

// KindOf returns the short kind name of err for metric labels.
// Errors outside the taxonomy report "unknown".
func KindOf(err error) string {
	return CodeOf(err).Kind()
}

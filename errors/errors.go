package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified error type of the fetch pipeline.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// StatusCode is the upstream HTTP status for ErrCodeHTTPStatus errors.
	StatusCode int `json:"status_code,omitempty"`
	// Upstream names the upstream the failure is attributed to, if known.
	Upstream string `json:"upstream,omitempty"`
	// Retryable indicates whether the failure is transient by nature.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended status when this error is served to clients.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	msg := e.Message
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithUpstream attributes the error to an upstream and returns the receiver.
func (e *AppError) WithUpstream(name string) *AppError {
	e.Upstream = name
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Transport boundary ---

// Transport creates a connection-level error. code must belong to the
// transport family; anything else is recorded as ErrCodeTransport.
func Transport(code ErrorCode, cause error) *AppError {
	if !IsTransportCode(code) {
		code = ErrCodeTransport
	}
	msg := "connection failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{
		Code: code, Message: msg,
		HTTPStatus: http.StatusBadGateway, Retryable: true, Cause: cause,
	}
}

// Timeout creates an error for an attempt that exceeded its deadline.
func Timeout(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s timed out", operation),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true, Cause: cause,
		Details: map[string]any{"operation": operation},
	}
}

// Canceled creates an error for an operation abandoned by its caller.
func Canceled(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCanceled, Message: fmt.Sprintf("%s canceled", operation),
		HTTPStatus: 499, Retryable: false, Cause: cause,
	}
}

// HTTPStatus creates an error for a non-2xx upstream answer.
// 429 and 5xx are marked retryable; the retry policy has the final say.
func HTTPStatus(statusCode int, body []byte) *AppError {
	e := &AppError{
		Code: ErrCodeHTTPStatus, Message: http.StatusText(statusCode),
		StatusCode: statusCode, HTTPStatus: http.StatusBadGateway,
		Retryable: statusCode == http.StatusTooManyRequests || statusCode >= 500,
	}
	if e.Message == "" {
		e.Message = "unexpected status"
	}
	if len(body) > 0 {
		e.Details = map[string]any{"body": truncate(body, 512)}
	}
	return e
}

// Parse creates an error for a malformed payload.
func Parse(what string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeParse, Message: fmt.Sprintf("malformed %s", what),
		HTTPStatus: http.StatusBadGateway, Retryable: false, Cause: cause,
	}
}

// CircuitOpen creates the rejection returned while a breaker is open.
func CircuitOpen(name string) *AppError {
	return &AppError{
		Code: ErrCodeCircuitOpen, Message: fmt.Sprintf("circuit breaker %q is open", name),
		Upstream: name, HTTPStatus: http.StatusServiceUnavailable, Retryable: false,
	}
}

// Validation creates an error for a payload or input of the wrong shape.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeValidation, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// NoData creates the error for a lookup the live feed cannot answer.
func NoData(what string) *AppError {
	return &AppError{
		Code: ErrCodeNoData, Message: fmt.Sprintf("no live data for %s", what),
		HTTPStatus: http.StatusNotFound, Retryable: false,
	}
}

// Unavailable creates the error for a service that is not ready to answer.
func Unavailable(message string) *AppError {
	return &AppError{
		Code: ErrCodeUnavailable, Message: message,
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

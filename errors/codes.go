package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Transport errors (connection level).
const (
	// ErrCodeTransport is a connection-level failure with no finer classification.
	ErrCodeTransport ErrorCode = "TRANSPORT"
	// ErrCodeConnectionReset indicates the peer reset or dropped the connection.
	ErrCodeConnectionReset ErrorCode = "CONNECTION_RESET"
	// ErrCodeHostNotFound indicates DNS resolution failed.
	ErrCodeHostNotFound ErrorCode = "HOST_NOT_FOUND"
	// ErrCodeConnectionRefused indicates the upstream refused the connection.
	ErrCodeConnectionRefused ErrorCode = "CONNECTION_REFUSED"
	// ErrCodeTimeout indicates the attempt exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeCanceled indicates the caller canceled the operation.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Application errors.
const (
	// ErrCodeHTTPStatus indicates the upstream answered with a non-2xx status.
	ErrCodeHTTPStatus ErrorCode = "HTTP_STATUS"
	// ErrCodeParse indicates a malformed payload.
	ErrCodeParse ErrorCode = "PARSE_ERROR"
	// ErrCodeValidation indicates a payload or input that does not match the expected shape.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
)

// Resilience errors.
const (
	// ErrCodeCircuitOpen indicates the circuit breaker rejected the call.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Service errors, returned by the HTTP surface.
const (
	// ErrCodeNoData indicates the live feed has nothing for the requested entity.
	ErrCodeNoData ErrorCode = "NO_DATA"
	// ErrCodeUnavailable indicates the service cannot answer yet.
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"
)

// Kind returns the short lowercase name used in metric labels and retry policies.
func (c ErrorCode) Kind() string {
	switch c {
	case ErrCodeTransport:
		return "transport"
	case ErrCodeConnectionReset:
		return "reset"
	case ErrCodeHostNotFound:
		return "not_found"
	case ErrCodeConnectionRefused:
		return "refused"
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeCanceled:
		return "canceled"
	case ErrCodeHTTPStatus:
		return "http_status"
	case ErrCodeParse:
		return "parse"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeCircuitOpen:
		return "circuit_open"
	case ErrCodeInternal:
		return "internal"
	case ErrCodeNoData:
		return "no_data"
	case ErrCodeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ParseKind maps a short kind name back to its ErrorCode.
func ParseKind(kind string) (ErrorCode, bool) {
	for _, c := range allCodes {
		if c.Kind() == kind {
			return c, true
		}
	}
	return "", false
}

// IsTransportCode reports whether the code belongs to the connection-level family.
func IsTransportCode(code ErrorCode) bool {
	switch code {
	case ErrCodeTransport, ErrCodeConnectionReset, ErrCodeHostNotFound, ErrCodeConnectionRefused:
		return true
	}
	return false
}

var allCodes = []ErrorCode{
	ErrCodeTransport,
	ErrCodeConnectionReset,
	ErrCodeHostNotFound,
	ErrCodeConnectionRefused,
	ErrCodeTimeout,
	ErrCodeCanceled,
	ErrCodeHTTPStatus,
	ErrCodeParse,
	ErrCodeValidation,
	ErrCodeCircuitOpen,
	ErrCodeInternal,
	ErrCodeNoData,
	ErrCodeUnavailable,
}

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTransport:         true,
	ErrCodeConnectionReset:   true,
	ErrCodeHostNotFound:      true,
	ErrCodeConnectionRefused: true,
	ErrCodeTimeout:           true,
}

// IsRetryableCode returns true if the error code is transient by nature.
// Whether a call is actually retried is decided by the retry policy.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

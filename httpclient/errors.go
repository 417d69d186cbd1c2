package httpclient

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"syscall"

	"github.com/NathanNam/caltrain-commuter-app/errors"
)

// ClassifyStatusCode returns nil for 2xx and an HTTP status error otherwise.
func ClassifyStatusCode(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return errors.HTTPStatus(statusCode, body)
}

// ClassifyTransportError maps a failed round trip to the error taxonomy.
// callerCtx distinguishes caller cancellation from the attempt deadline.
func ClassifyTransportError(callerCtx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if callerErr := callerCtx.Err(); callerErr != nil {
		if stderrors.Is(callerErr, context.DeadlineExceeded) {
			return errors.Timeout(op, err)
		}
		return errors.Canceled(op, err)
	}

	var netErr net.Error
	var dnsErr *net.DNSError
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout(op, err)
	case stderrors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return errors.Timeout(op, err)
		}
		return errors.Transport(errors.ErrCodeHostNotFound, err)
	case stderrors.Is(err, syscall.ECONNREFUSED):
		return errors.Transport(errors.ErrCodeConnectionRefused, err)
	case stderrors.Is(err, syscall.ECONNRESET),
		stderrors.Is(err, syscall.EPIPE),
		stderrors.Is(err, io.EOF),
		stderrors.Is(err, io.ErrUnexpectedEOF):
		return errors.Transport(errors.ErrCodeConnectionReset, err)
	case stderrors.As(err, &netErr) && netErr.Timeout():
		return errors.Timeout(op, err)
	default:
		return errors.Transport(errors.ErrCodeTransport, err)
	}
}

package errx

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// WrapUpstream maps an HTTP status from an external service, or a transport
// error, to the unified Error type. A zero status means the request never
// completed.
func WrapUpstream(err error, status int, message string) *Error {
	if err == nil && status < http.StatusBadRequest {
		return nil
	}
	if message == "" {
		message = UpstreamErrorMessage
	}

	if status >= http.StatusBadRequest {
		return New(err, status, message)
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return New(err, http.StatusGatewayTimeout, message)
	case errors.As(err, &netErr) && netErr.Timeout():
		return New(err, http.StatusGatewayTimeout, message)
	default:
		return New(err, http.StatusBadGateway, message)
	}
}

// WrapStorage maps a local database error to the unified Error type.
func WrapStorage(err error) *Error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusInternalServerError, StorageErrorMessage)
}

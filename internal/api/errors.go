package api

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
)

// Sentinel errors for remote rejections. StatusError matches these through
// errors.Is, so callers can branch on the class without knowing the wire
// status.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// StatusError is a non-2xx response from the backend, carrying the HTTP
// status and the human-readable message from the error envelope.
type StatusError struct {
	Code    int
	Message string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (status %d)", http.StatusText(e.Code), e.Code)
}

// Is maps status classes onto the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrConflict:
		return e.Code == http.StatusConflict
	}
	return false
}

// IsTransient reports whether err is a retriable server failure. The
// transport layer has already exhausted its retry budget by the time a
// store sees one of these; the store surfaces it without retrying further.
func IsTransient(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

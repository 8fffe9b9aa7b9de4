package stepn

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthorized means the session id was rejected, it is recovered from by logging in again.
	ErrNotAuthorized = errors.New("stepn: player has not logged in")
	// ErrNotFound means the referenced order no longer exists, it is recovered from by skipping the order.
	ErrNotFound = errors.New("stepn: order does not exist")
	// ErrFatal marks failures that abort the whole run, like running out of login attempts.
	ErrFatal = errors.New("fatal")
)

// APIError is any non-zero response code that is neither ErrNotAuthorized nor ErrNotFound.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stepn: code %d: %s", e.Code, e.Msg)
}

// TransportError is a failure below the API envelope: connection errors,
// timeouts, or a body that is not a response envelope.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stepn: %s: transport: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err contains a TransportError.
func IsTransport(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr)
}

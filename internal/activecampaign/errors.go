package activecampaign

import (
	"errors"
	"fmt"
	"net"
)

// ErrInvalidResponse means a 2xx body could not be used: not JSON, or
// missing the object the endpoint promises (e.g. contact.id).
var ErrInvalidResponse = errors.New("invalid API response")

// NetworkError wraps a transport failure: DNS, connect, TLS or timeout.
// Nothing reached (or came back from) the API, so the call may be retried.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a connect or read timeout.
func (e *NetworkError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

package fetch

import (
	"errors"
	"fmt"
)

// ErrNoNetwork is returned without touching the network when the link is
// down.
var ErrNoNetwork = errors.New("fetch: network not connected")

// HTTPError is a transport failure (StatusCode 0) or a non-2xx response.
type HTTPError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// DecodeError is a payload that is not JSON or lacks a required field.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode %s: missing", e.Field)
	}
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func missing(field string) error { return &DecodeError{Field: field} }

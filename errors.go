package agentpulse

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterval is returned by [Start] when the interval is not positive.
	ErrInvalidInterval = errors.New("poll interval must be positive")

	// ErrInvalidEndpoint is returned by [Start] when the endpoint is not an
	// absolute http or https URL.
	ErrInvalidEndpoint = errors.New("endpoint must be an absolute http or https URL")
)

// NetworkError reports a poll that never produced a complete response:
// the request could not be sent, timed out, or the body could not be read.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error polling %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError reports a response with a non-2xx status code.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d from %s", e.StatusCode, e.URL)
}

// ParseError reports a response body that is not a valid status list.
//
// Index is the position of the offending record, or -1 when the document
// as a whole could not be decoded.
type ParseError struct {
	Index int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid status document: %v", e.Err)
	}
	return fmt.Sprintf("invalid status record %d: %v", e.Index, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

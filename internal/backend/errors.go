package backend

import (
	"errors"
	"fmt"
)

// DomainError is a response that arrived intact but carried an error field.
type DomainError struct {
	Endpoint string
	Message  string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

// TransportError covers network failures, non-2xx statuses and undecodable bodies.
type TransportError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsDomain reports whether err carries a backend error message, returning it if so.
func IsDomain(err error) (string, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message, true
	}
	return "", false
}

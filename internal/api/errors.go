package api

import (
	"errors"
	"fmt"
)

// RequestError is a non-2xx answer from the backend.
type RequestError struct {
	Method     string
	Path       string
	Status     int
	StatusText string

	// Message is the server's detail when the body carried one, otherwise
	// the status phrase.
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// TransportError means no status code was received at all.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError rejects input before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a
// RequestError.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return 0
}

// Message extracts the text a user should see for err.
func Message(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

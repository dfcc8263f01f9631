package client

import (
	"errors"
	"fmt"
)

// FallbackMessage is shown when the service fails without saying why.
const FallbackMessage = "Prediction failed"

// ErrInvalidBaseURL is returned by New when the base URL cannot be parsed.
var ErrInvalidBaseURL = errors.New("invalid base url")

// TransportError means the request could not be made or completed.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError is a non-2xx answer. Message is the body's error field, or
// FallbackMessage when the body carries none.
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

// MalformedResponseError is a 2xx answer whose body is missing, is not JSON,
// or names a quality outside the known set.
type MalformedResponseError struct {
	StatusCode int
	Err        error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response (status %d): %v", e.StatusCode, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Message returns the text a user should see for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *ServiceError
	if errors.As(err, &se) {
		if se.Message == "" {
			return FallbackMessage
		}
		return se.Message
	}
	var me *MalformedResponseError
	if errors.As(err, &me) {
		return FallbackMessage
	}
	return err.Error()
}

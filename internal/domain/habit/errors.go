package habit

import (
	"errors"
	"fmt"
)

// Sentinel kinds for record validation.
var (
	ErrMissingField = errors.New("missing field")
	ErrInvalidField = errors.New("invalid field")
)

// FieldError reports which field of a Record failed and why.
type FieldError struct {
	Field string
	Kind  error // ErrMissingField or ErrInvalidField
	Cause error
}

func (e *FieldError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Field, e.Cause)
	}
	return fmt.Sprintf("%s %s", e.Kind, e.Field)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *FieldError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Public is the message safe to hand back to a client, e.g. "Invalid caffeine value".
func (e *FieldError) Public() string {
	if errors.Is(e.Kind, ErrMissingField) {
		return "Missing " + e.Field
	}
	return "Invalid " + e.Field + " value"
}

func missing(field string) error {
	return &FieldError{Field: field, Kind: ErrMissingField}
}

func invalid(field string, cause error) error {
	return &FieldError{Field: field, Kind: ErrInvalidField, Cause: cause}
}

package registry

import (
	"errors"
)

// Validation reasons. Test with errors.Is.
var (
	ErrMissingField  = errors.New("missing field")
	ErrMissingImage  = errors.New("missing image")
	ErrNoFace        = errors.New("no face found")
	ErrMultipleFaces = errors.New("multiple faces found")
)

// ErrAlreadyRegistered is returned when an enrolled face already matches the image.
var ErrAlreadyRegistered = errors.New("already registered")

// ValidationError reports unusable input. Reason is one of the Err* validation reasons.
type ValidationError struct {
	Reason error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

func invalid(reason error) error {
	return &ValidationError{Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

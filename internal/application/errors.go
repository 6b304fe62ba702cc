package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when a write collides with existing state, such
	// as an overlapping reservation or a duplicate unique value.
	ErrConflict = errors.New("application: conflict")
	// ErrInvalidRange is returned when a queried time range has end before or
	// equal to start.
	ErrInvalidRange = errors.New("application: invalid time range")
	// ErrInvalidState is returned when a status transition targets a
	// reservation that is no longer pending.
	ErrInvalidState = errors.New("application: invalid state")
	// ErrUnauthorized is returned when the caller presents no valid identity.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the acting principal lacks permission for an operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrInvalidCredentials is returned when login credentials do not match an account.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

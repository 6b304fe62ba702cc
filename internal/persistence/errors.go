package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique column (space code, user email)
	// would collide with an existing record.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConflict is returned when a reservation insert would overlap a
	// non-rejected reservation on the same space and date.
	ErrConflict = errors.New("persistence: reservation conflict")
	// ErrInvalidState is returned when a status transition or delete targets
	// a reservation that is no longer pending.
	ErrInvalidState = errors.New("persistence: invalid reservation state")
	// ErrConstraintViolation is returned when a record violates a schema
	// check constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a record references a missing
	// row.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)

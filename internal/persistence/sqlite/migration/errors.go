package migration

import "errors"

var (
	// ErrInvalidFileName is returned when an embedded migration file does not
	// follow the {version}_{description}.sql convention.
	ErrInvalidFileName = errors.New("migration: invalid file name")
	// ErrDuplicateVersion is returned when two migration files declare the
	// same version.
	ErrDuplicateVersion = errors.New("migration: duplicate version")
	// ErrOutOfOrder is returned when the database has a version applied that
	// the embedded set no longer contains.
	ErrOutOfOrder = errors.New("migration: applied version missing from embedded set")
)

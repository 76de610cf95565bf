package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database must already
	// exist but does not.
	ErrDatabaseNotFound = errors.New("database not found (use CreateIfNotExists option to create)")

	// ErrInvalidReport is returned when saving a nil report or one without a run id.
	ErrInvalidReport = errors.New("report has no run id")
)

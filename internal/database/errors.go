package database

import "errors"

var (
	// ErrNotFound is returned when no check has the requested ID.
	ErrNotFound = errors.New("check not found")

	// ErrDatabaseNotFound is returned by Open when the database file does
	// not exist and CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")
)

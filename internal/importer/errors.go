package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrUnknownTable is returned when no descriptor is registered for a
	// table selector. No job is created for an unknown table.
	ErrUnknownTable = errors.New("unknown import table")

	// ErrNotFound is returned by the store when a natural key does not
	// resolve to a persisted record.
	ErrNotFound = errors.New("record not found")
)

// ParseError marks an upload whose contents are not well-formed tabular
// data. It is surfaced before any job is created.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed upload: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

package db

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references a task id that does not exist
var ErrNotFound = errors.New("task not found")

// StorageError wraps an I/O or constraint failure reported by SQLite
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// MalformedTimestampError reports a persisted timer timestamp that cannot be parsed
type MalformedTimestampError struct {
	Field string
	Value string
	Err   error
}

func (e *MalformedTimestampError) Error() string {
	return fmt.Sprintf("malformed %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *MalformedTimestampError) Unwrap() error {
	return e.Err
}

package audit

import (
	"errors"
	"fmt"
)

// StorageError reports that the event log could not durably append or read.
// Stores wrap every backend failure in one so callers can tell persistence
// problems apart from validation problems.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err for op. A nil err stays nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err came from a store failure.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Package services defines the business logic for resource kinds.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer. Validation failures are reported as
// *validation.Error.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that no record of the requested kind has the
	// given id.
	ErrNotFound = errors.New("resource not found")

	// ErrIdempotencyConflict is returned when an Idempotency-Key was already
	// used but its original result can no longer be replayed.
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
)

// StorageError wraps a failure of the underlying database (connection,
// query or constraint errors).
type StorageError struct {
	Kind string
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: storage: %v", e.Kind, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorage reports whether err wraps a *StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

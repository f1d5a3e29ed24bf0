package database

import (
	"errors"
	"fmt"
)

// Errors returned by every Store implementation. Backend errors are mapped
// onto these so callers can use errors.Is() regardless of the driver.
var (
	// ErrCredentials is returned when the backend rejects the login.
	ErrCredentials = errors.New("authentication failed: double-check your credentials")

	// ErrDatabaseNotFound is returned when the named database does not exist.
	ErrDatabaseNotFound = errors.New("database does not exist: create the database first")

	// ErrTableNotFound is returned when the page table does not exist.
	ErrTableNotFound = errors.New("table does not exist: run `spider cobweb create` first")

	// ErrTableAlreadyExists is returned by CreateTable(ctx, false) when the
	// page table already exists.
	ErrTableAlreadyExists = errors.New("table already exists")

	// ErrNotConnected is returned when an operation runs before Connect.
	ErrNotConnected = errors.New("store is not connected")
)

// DatabaseError wraps a driver error with the backend and operation that
// produced it. Kind is one of the sentinel errors above when the driver
// error could be classified.
type DatabaseError struct {
	// Backend is the store name, e.g. "postgresql".
	Backend string

	// Op is the store operation, e.g. "save".
	Op string

	// Kind is the classified sentinel error, or nil.
	Kind error

	// Err is the underlying driver error.
	Err error
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s %s: %v: %v", e.Backend, e.Op, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Kind)
	default:
		return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
	}
}

// Unwrap returns the sentinel kind and the driver error.
func (e *DatabaseError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// newError builds a DatabaseError. It returns nil when err is nil.
func newError(backend, op string, kind, err error) error {
	if err == nil && kind == nil {
		return nil
	}
	return &DatabaseError{Backend: backend, Op: op, Kind: kind, Err: err}
}

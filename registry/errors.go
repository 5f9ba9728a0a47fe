package registry

import (
	"errors"
	"fmt"
)

// Sentinel errors of the lookup and materialization paths. Cycle detection is
// deliberately absent: a detected cycle resolves to an omitted link plus a
// debug log entry, never an error.
var (
	// ErrNotFound is the one hard failure mode of the normal lookup path
	ErrNotFound = errors.New("class not found")
	// ErrImmaterialType marks an attempt to materialize a reflection
	// meta-type itself, which indicates programmer misuse
	ErrImmaterialType = errors.New("immaterial type")
	// ErrUnresolvedGeneric marks a generic declaration without an explicit
	// concrete binding, which cannot be instantiated
	ErrUnresolvedGeneric = errors.New("unresolved generic")
	// ErrFrozen is returned when a library is added after Freeze
	ErrFrozen = errors.New("registry already frozen")
	// ErrNotFrozen is returned when a lookup runs before Freeze
	ErrNotFrozen = errors.New("registry not frozen")
)

// ClassNotFoundError reports which query exhausted all lookup strategies
type ClassNotFoundError struct {
	Query string
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("class not found: %s", e.Query)
}

func (e *ClassNotFoundError) Unwrap() error {
	return ErrNotFound
}

func notFound(query string) error {
	return &ClassNotFoundError{Query: query}
}

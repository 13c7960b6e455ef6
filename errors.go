package cosmotype

import (
	"errors"
	"fmt"
)

// Sentinels for the two single-row read outcomes, matchable with
// errors.Is regardless of which structured error carried them.
var (
	// ErrNotFound reports that a single-row read matched nothing.
	ErrNotFound = errors.New("cosmotype: row not found")

	// ErrNotSingular reports that a single-row read matched more than
	// one row.
	ErrNotSingular = errors.New("cosmotype: row not singular")
)

// NotFoundError is returned by GetOne when no row matches the
// selection.
type NotFoundError struct {
	Table string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cosmotype: no %s row matches the selection", e.Table)
}

// Is allows errors.Is(err, ErrNotFound) to succeed.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IsNotFound reports whether err is a no-row outcome of a single-row
// read.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// NotSingularError is returned by GetOne when a selection expected to
// identify one row matched several.
type NotSingularError struct {
	Table string
	Count int
}

func (e *NotSingularError) Error() string {
	return fmt.Sprintf("cosmotype: %d %s rows match a selection expected to be singular", e.Count, e.Table)
}

// Is allows errors.Is(err, ErrNotSingular) to succeed.
func (e *NotSingularError) Is(target error) bool { return target == ErrNotSingular }

// IsNotSingular reports whether err is a multiple-row outcome of a
// single-row read.
func IsNotSingular(err error) bool { return errors.Is(err, ErrNotSingular) }

// QueryError wraps a driver failure during a read, carrying the table
// and the selection kind that failed.
type QueryError struct {
	Table string
	Op    string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("cosmotype: querying %s (%s): %v", e.Table, e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// MutationError wraps a driver failure during a write, carrying the
// table and the mutation kind that failed.
type MutationError struct {
	Table string
	Op    string
	Err   error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("cosmotype: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// NewMutationError builds a *MutationError for op against table.
func NewMutationError(table, op string, err error) *MutationError {
	return &MutationError{Table: table, Op: op, Err: err}
}

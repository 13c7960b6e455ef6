package driver

import (
	"errors"
	"strings"
)

// ConstraintError wraps a backend error classified as a constraint
// violation (unique, foreign key, or check).
type ConstraintError struct {
	Kind string // "unique", "foreignKey", or "check"
	Err  error
}

func (e *ConstraintError) Error() string {
	return "cosmotype: " + e.Kind + " constraint violated: " + e.Err.Error()
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// Is maps a classified unique violation onto the ErrDuplicateEntry
// condition, so errors.Is works without re-probing the native error.
func (e *ConstraintError) Is(target error) bool {
	return e.Kind == "unique" && target == ErrDuplicateEntry
}

// constraintClass describes how one violation kind surfaces across
// backends: a Postgres SQLSTATE, MySQL error numbers, and message
// fragments for drivers (sqlite, go-sqlmock) that expose neither a
// code accessor nor an error number.
type constraintClass struct {
	kind      string
	sqlState  string
	mysqlNums []uint16
	fragments []string
}

var constraintClasses = []constraintClass{
	{
		kind:      "unique",
		sqlState:  "23505",
		mysqlNums: []uint16{1062},
		fragments: []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed"},
	},
	{
		kind:      "foreignKey",
		sqlState:  "23503",
		mysqlNums: []uint16{1451, 1452},
		fragments: []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"},
	},
	{
		kind:      "check",
		sqlState:  "23514",
		mysqlNums: []uint16{3819},
		fragments: []string{"Error 3819", "violates check constraint", "CHECK constraint failed"},
	},
}

// errorCoder matches driver errors that report a SQLSTATE through a
// Code() string method (pq.Error exposes Code as a field, not a method).
type errorCoder interface{ Code() string }

// errorNumberer matches driver errors that report a MySQL error number
// through a Number() method; github.com/go-sql-driver/mysql.MySQLError
// exposes Number as a field, so it is classified by message fragment.
type errorNumberer interface{ Number() uint16 }

// sqlStateError is implemented by pq.Error and pgx.
type sqlStateError interface{ SQLState() string }

// matches probes err against this class through every channel a driver
// might use to report it.
func (c constraintClass) matches(err error) bool {
	if e, ok := asError[sqlStateError](err); ok && e.SQLState() == c.sqlState {
		return true
	}
	if e, ok := asError[errorCoder](err); ok && e.Code() == c.sqlState {
		return true
	}
	if e, ok := asError[errorNumberer](err); ok {
		for _, n := range c.mysqlNums {
			if e.Number() == n {
				return true
			}
		}
	}
	msg := err.Error()
	for _, frag := range c.fragments {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

func classify(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	for _, c := range constraintClasses {
		if c.matches(err) {
			return c.kind, true
		}
	}
	return "", false
}

// ClassifyConstraintError wraps err in a *ConstraintError when it looks
// like a backend constraint violation, and returns it unchanged
// otherwise.
func ClassifyConstraintError(err error) error {
	if kind, ok := classify(err); ok {
		return &ConstraintError{Kind: kind, Err: err}
	}
	return err
}

// IsUniqueConstraintError reports whether err is a uniqueness violation
// (a duplicate entry).
func IsUniqueConstraintError(err error) bool {
	kind, ok := classify(err)
	return ok && kind == "unique"
}

// IsForeignKeyConstraintError reports whether err is a foreign-key
// violation.
func IsForeignKeyConstraintError(err error) bool {
	kind, ok := classify(err)
	return ok && kind == "foreignKey"
}

// IsCheckConstraintError reports whether err is a check-constraint
// violation.
func IsCheckConstraintError(err error) bool {
	kind, ok := classify(err)
	return ok && kind == "check"
}

func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

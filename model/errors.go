package model

import (
	"errors"
	"fmt"
)

// ErrIndexMissing is the sentinel for the IndexMissing condition: a
// primary or unique key references an unknown field.
var ErrIndexMissing = errors.New("cosmotype: index references unknown field")

// IndexMissingError carries the offending model/field detail.
type IndexMissingError struct {
	Model, Field string
}

func (e *IndexMissingError) Error() string {
	return fmt.Sprintf("cosmotype: model %q: index references unknown field %q", e.Model, e.Field)
}
func (e *IndexMissingError) Is(target error) bool { return target == ErrIndexMissing }

// NewIndexMissingError builds an *IndexMissingError.
func NewIndexMissingError(model, field string) error {
	return &IndexMissingError{Model: model, Field: field}
}

// IsIndexMissing reports whether err is an IndexMissingError.
func IsIndexMissing(err error) bool {
	if err == nil {
		return false
	}
	var e *IndexMissingError
	return errors.As(err, &e) || errors.Is(err, ErrIndexMissing)
}

// ErrPrimaryAutoIncMismatch is the sentinel for the PrimaryAutoIncMismatch
// condition: a field of type `primary` without the owning model enabling
// autoincrement.
var ErrPrimaryAutoIncMismatch = errors.New("cosmotype: primary field requires autoincrement")

// PrimaryAutoIncMismatchError carries the offending model/field detail.
type PrimaryAutoIncMismatchError struct {
	Model, Field string
}

func (e *PrimaryAutoIncMismatchError) Error() string {
	return fmt.Sprintf("cosmotype: model %q: field %q is type primary but model does not enable autoincrement", e.Model, e.Field)
}
func (e *PrimaryAutoIncMismatchError) Is(target error) bool {
	return target == ErrPrimaryAutoIncMismatch
}

// NewPrimaryAutoIncMismatchError builds a *PrimaryAutoIncMismatchError.
func NewPrimaryAutoIncMismatchError(model, field string) error {
	return &PrimaryAutoIncMismatchError{Model: model, Field: field}
}

// IsPrimaryAutoIncMismatch reports whether err is a PrimaryAutoIncMismatchError.
func IsPrimaryAutoIncMismatch(err error) bool {
	if err == nil {
		return false
	}
	var e *PrimaryAutoIncMismatchError
	return errors.As(err, &e) || errors.Is(err, ErrPrimaryAutoIncMismatch)
}

// ErrRelationUnresolved is the sentinel for the RelationUnresolved
// condition: a cascade references a nonexistent relation or inverse.
var ErrRelationUnresolved = errors.New("cosmotype: relation could not be resolved")

// RelationUnresolvedError carries the offending model/relation detail.
type RelationUnresolvedError struct {
	Model, Relation string
	Reason          string
}

func (e *RelationUnresolvedError) Error() string {
	return fmt.Sprintf("cosmotype: model %q: relation %q unresolved: %s", e.Model, e.Relation, e.Reason)
}
func (e *RelationUnresolvedError) Is(target error) bool { return target == ErrRelationUnresolved }

// NewRelationUnresolvedError builds a *RelationUnresolvedError.
func NewRelationUnresolvedError(model, relation, reason string) error {
	return &RelationUnresolvedError{Model: model, Relation: relation, Reason: reason}
}

// IsRelationUnresolved reports whether err is a RelationUnresolvedError.
func IsRelationUnresolved(err error) bool {
	if err == nil {
		return false
	}
	var e *RelationUnresolvedError
	return errors.As(err, &e) || errors.Is(err, ErrRelationUnresolved)
}

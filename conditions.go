package cosmotype

import (
	"github.com/cosmotype/cosmotype/driver"
	"github.com/cosmotype/cosmotype/field"
	"github.com/cosmotype/cosmotype/model"
)

// The named error conditions surfaced across the module, re-exported
// here so callers can errors.Is against a single package regardless of
// which layer produced the condition.
var (
	// ErrInvalidField: malformed field shorthand, or an unknown field
	// under strict formatting.
	ErrInvalidField = field.ErrInvalidField

	// ErrIndexMissing: a primary/unique key references an unknown field.
	ErrIndexMissing = model.ErrIndexMissing

	// ErrPrimaryAutoIncMismatch: a `primary` field on a model without
	// autoincrement.
	ErrPrimaryAutoIncMismatch = model.ErrPrimaryAutoIncMismatch

	// ErrRelationUnresolved: a cascade or include references a relation
	// that was never declared.
	ErrRelationUnresolved = model.ErrRelationUnresolved

	// ErrDuplicateEntry: a unique-constraint violation reported by the
	// backend.
	ErrDuplicateEntry = driver.ErrDuplicateEntry

	// ErrExpressionUnlowerable: an operator with no driver translation
	// and no evaluator fallback.
	ErrExpressionUnlowerable = driver.ErrExpressionUnlowerable

	// ErrTransactionAborted: driver rollback or lost connection.
	ErrTransactionAborted = driver.ErrTransactionAborted

	// ErrCancelled: external cancellation.
	ErrCancelled = driver.ErrCancelled
)

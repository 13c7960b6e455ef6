package driver

import (
	"context"
	"errors"
)

// Named conditions drivers translate their native error codes into.
var (
	// ErrDuplicateEntry reports a unique-constraint violation.
	ErrDuplicateEntry = errors.New("cosmotype: duplicate entry")

	// ErrExpressionUnlowerable reports a Query/Eval operator the driver
	// cannot translate to its native dialect and cannot complete through
	// the portable evaluator either.
	ErrExpressionUnlowerable = errors.New("cosmotype: expression cannot be lowered")

	// ErrTransactionAborted reports a driver-side rollback or a
	// connection lost mid-transaction.
	ErrTransactionAborted = errors.New("cosmotype: transaction aborted")

	// ErrCancelled reports an external cancellation signal.
	ErrCancelled = errors.New("cosmotype: cancelled")
)

// IsDuplicateEntry reports whether err is a uniqueness violation, either
// the ErrDuplicateEntry sentinel or a backend error classified as one.
func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDuplicateEntry) || IsUniqueConstraintError(err)
}

// IsCancelled reports whether err stems from external cancellation,
// covering both the ErrCancelled sentinel and the context errors drivers
// surface directly.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

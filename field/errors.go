package field

import "errors"

// ErrInvalidField is the sentinel for the InvalidField condition:
// malformed field shorthand, or an unknown field
// referenced under strict formatting.
var ErrInvalidField = errors.New("cosmotype: invalid field")

// InvalidFieldError carries the offending detail alongside ErrInvalidField.
type InvalidFieldError struct {
	Reason string
}

func (e *InvalidFieldError) Error() string { return "cosmotype: invalid field: " + e.Reason }

// Is allows errors.Is(err, ErrInvalidField) to succeed.
func (e *InvalidFieldError) Is(target error) bool { return target == ErrInvalidField }

// NewInvalidFieldError builds an *InvalidFieldError for the given reason.
func NewInvalidFieldError(reason string) error {
	return &InvalidFieldError{Reason: reason}
}

// IsInvalidField reports whether err is an InvalidFieldError.
func IsInvalidField(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidFieldError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidField)
}

// Package errors provides common domain error types for funnel-cli.
//
// It defines sentinel errors for conditions like "not found" or "invalid
// state" that cross package boundaries, enabling consistent errors.Is()
// handling.
//
// Usage:
//
//	import funnelerrors "github.com/otherjamesbrown/funnel-cli/pkg/errors"
//
//	return nil, funnelerrors.ErrNotFound
//
//	if funnelerrors.IsNotFound(err) {
//	    // handle not found case
//	}
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotFound indicates the requested record was not found.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrAlreadyExists indicates the record already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState indicates the operation is not valid for the current
	// state, such as resolving an already-terminal review case.
	ErrInvalidState = errors.New("invalid state")

	// ErrDegraded indicates a richer data source is unavailable and a
	// fallback signal was used. Informational, not fatal.
	ErrDegraded = errors.New("degraded data source")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether any error in err's chain is ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsAlreadyExists reports whether any error in err's chain is ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsDegraded reports whether any error in err's chain is ErrDegraded.
func IsDegraded(err error) bool {
	return errors.Is(err, ErrDegraded)
}
